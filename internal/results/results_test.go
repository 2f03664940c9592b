package results

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

func mockFetcher() Fetcher {
	return FetcherFunc(func(ctx context.Context) ([]models.PredictionRecord, error) {
		return []models.PredictionRecord{
			{Name: "John", Fighter: "Usyk", Round: "3", Timing: "early"},
			{Name: "Jane", Fighter: "Fury", Round: "points"},
		}, nil
	})
}

func TestTrendByLocale(t *testing.T) {
	cases := []struct {
		locale string
		want   string
	}{
		{"fr-FR", TrendFrench},
		{"fr", TrendFrench},
		{"FR-ca", TrendFrench},
		{"en-US", TrendEnglish},
		{"de-DE", TrendEnglish},
		{"", TrendEnglish},
		{"f", TrendEnglish},
	}
	for _, tc := range cases {
		t.Run(tc.locale, func(t *testing.T) {
			p := New(mockFetcher(), tc.locale)
			assert.Equal(t, tc.want, p.Trend())
		})
	}
}

func TestLoadRendersRowsInOrderWithPlaceholders(t *testing.T) {
	p := New(mockFetcher(), "en-US")
	require.NoError(t, p.Load(context.Background()))

	rows := p.Rows()
	require.Len(t, rows, 2)

	assert.Equal(t, Row{Name: "John", Fighter: "Usyk", Round: "3", Timing: "early", Notes: "-"}, rows[0])
	assert.Equal(t, "Jane", rows[1].Name)
	assert.Equal(t, "-", rows[1].Timing)
	assert.Equal(t, "-", rows[1].Notes)
	assert.NoError(t, p.Err())
}

func TestLoadFailureIsVisible(t *testing.T) {
	boom := errors.New("db down")
	p := New(FetcherFunc(func(ctx context.Context) ([]models.PredictionRecord, error) {
		return nil, boom
	}), "fr-FR")

	err := p.Load(context.Background())
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, err, p.Err())
	assert.Empty(t, p.Rows())
	assert.Equal(t, TrendFrench, p.Trend(), "trend does not depend on the data")
}

func TestLoadRunsOnce(t *testing.T) {
	calls := 0
	p := New(FetcherFunc(func(ctx context.Context) ([]models.PredictionRecord, error) {
		calls++
		return nil, nil
	}), "en")

	require.NoError(t, p.Load(context.Background()))
	assert.ErrorIs(t, p.Load(context.Background()), ErrAlreadyLoaded)
	assert.Equal(t, 1, calls)
}

func TestTrendIgnoresData(t *testing.T) {
	p := New(FetcherFunc(func(ctx context.Context) ([]models.PredictionRecord, error) {
		return []models.PredictionRecord{{Name: "A", Fighter: "Fury", Round: "1", Timing: "Late"}}, nil
	}), "en-GB")
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, TrendEnglish, p.Trend())
}
