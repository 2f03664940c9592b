package dal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// exerciseStore runs the behaviour every backend shares against an empty store
func exerciseStore(t *testing.T, store PredictionDAL) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.Reset(ctx))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	t.Run("seed fills an empty store once", func(t *testing.T) {
		n, err := store.Seed(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.Seed(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		recs, err := store.FetchResults(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, models.PredictionRecord{Name: "John", Fighter: "Usyk", Round: "3", Timing: "early"}, recs[0])
		assert.Equal(t, models.PredictionRecord{Name: "Jane", Fighter: "Fury", Round: "points"}, recs[1])
	})

	t.Run("concurrent seeds write the demo rows once", func(t *testing.T) {
		require.NoError(t, store.Reset(ctx))
		assertSeedsOnce(t, store, store, store, store)
	})

	t.Run("submit appends in order", func(t *testing.T) {
		ack, err := store.SubmitPrediction(ctx, models.PredictionInput{
			Name:    "Alice",
			Email:   "alice@example.com",
			Fighter: models.FighterFury,
			Round:   models.RoundPoints,
			Timing:  models.TimingLate,
			Notes:   "decision",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, ack.ID)
		assert.WithinDuration(t, time.Now(), ack.ReceivedAt, time.Minute)

		preds, err := store.ListPredictions(ctx)
		require.NoError(t, err)
		require.Len(t, preds, 3)
		last := preds[2]
		assert.Equal(t, ack.ID, last.ID)
		assert.Equal(t, "alice@example.com", last.Email)
		assert.Equal(t, "Alice", last.Name)
		assert.Empty(t, last.Timing, "timing is dropped for a points decision")
		assert.Equal(t, "decision", last.Notes)
	})

	t.Run("incomplete submissions are rejected", func(t *testing.T) {
		_, err := store.SubmitPrediction(ctx, models.PredictionInput{Name: "Bob", Fighter: models.FighterUsyk})
		assert.ErrorIs(t, err, ErrIncompletePrediction)

		_, err = store.SubmitPrediction(ctx, models.PredictionInput{Fighter: models.FighterUsyk, Round: "4"})
		assert.ErrorIs(t, err, ErrIncompletePrediction)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("reset empties the store", func(t *testing.T) {
		require.NoError(t, store.Reset(ctx))
		recs, err := store.FetchResults(ctx)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

// assertSeedsOnce seeds an empty store through every handle at once, the way
// replicas starting together do, and checks the demo rows land exactly once
func assertSeedsOnce(t *testing.T, handles ...PredictionDAL) {
	t.Helper()
	ctx := context.Background()

	var wg sync.WaitGroup
	counts := make([]int, len(handles))
	errs := make([]error, len(handles))
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h PredictionDAL) {
			defer wg.Done()
			counts[i], errs[i] = h.Seed(ctx)
		}(i, h)
	}
	wg.Wait()

	total := 0
	for i := range handles {
		require.NoError(t, errs[i], "seed %d", i)
		total += counts[i]
	}
	assert.Equal(t, 2, total, "seeded counts add up to the demo rows")

	count, err := handles[0].Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
