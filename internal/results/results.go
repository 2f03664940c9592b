// Package results renders submitted predictions as a table with a
// locale-dependent trend sentence.
package results

import (
	"context"
	"errors"
	"strings"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// Placeholder is rendered for missing timing or notes
const Placeholder = "-"

// Trend sentences. They are fixed copy, not derived from the rows.
const (
	TrendEnglish = "So far, people think Usyk will win by knockout early in the 3rd round"
	TrendFrench  = "Pour l'instant, la majorité pense qu'Usyk gagnera par KO au début du 3ème round"
)

// Fetcher loads the prediction rows
type Fetcher interface {
	FetchResults(ctx context.Context) ([]models.PredictionRecord, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context) ([]models.PredictionRecord, error)

func (fn FetcherFunc) FetchResults(ctx context.Context) ([]models.PredictionRecord, error) {
	return fn(ctx)
}

// FetchError wraps a failure to load the rows
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return "fetch results: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrAlreadyLoaded is returned when Load is called twice on the same page
var ErrAlreadyLoaded = errors.New("results already loaded")

// Language returns "fr" for French locales and "en" for everything else
func Language(locale string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(locale)), "fr") {
		return "fr"
	}
	return "en"
}

// TrendFor picks the trend sentence for a locale
func TrendFor(locale string) string {
	if Language(locale) == "fr" {
		return TrendFrench
	}
	return TrendEnglish
}

// Row is a results table row with placeholders filled in
type Row struct {
	Name    string `json:"name"`
	Fighter string `json:"fighter"`
	Round   string `json:"round"`
	Timing  string `json:"timing"`
	Notes   string `json:"notes"`
}

// Page is one load of the results page
type Page struct {
	fetcher Fetcher
	locale  string
	trend   string
	loaded  bool
	records []models.PredictionRecord
	err     error
}

// New creates a page for the given locale. The locale is read once here.
func New(fetcher Fetcher, locale string) *Page {
	return &Page{
		fetcher: fetcher,
		locale:  locale,
		trend:   TrendFor(locale),
	}
}

// Load fetches the rows once. On failure the page keeps an empty table and
// exposes the error through Err.
func (p *Page) Load(ctx context.Context) error {
	if p.loaded {
		return ErrAlreadyLoaded
	}
	p.loaded = true

	records, err := p.fetcher.FetchResults(ctx)
	if err != nil {
		p.err = &FetchError{Err: err}
		p.records = nil
		return p.err
	}
	p.records = records
	return nil
}

// Locale returns the locale the page was built with
func (p *Page) Locale() string { return p.locale }

// Language returns the presentation language of the page
func (p *Page) Language() string { return Language(p.locale) }

// Trend returns the trend sentence
func (p *Page) Trend() string { return p.trend }

// Err returns the load error, if any
func (p *Page) Err() error { return p.err }

// Records returns the rows as received
func (p *Page) Records() []models.PredictionRecord {
	out := make([]models.PredictionRecord, len(p.records))
	copy(out, p.records)
	return out
}

// Rows returns one table row per record in received order
func (p *Page) Rows() []Row {
	rows := make([]Row, 0, len(p.records))
	for _, r := range p.records {
		rows = append(rows, Row{
			Name:    r.Name,
			Fighter: r.Fighter,
			Round:   r.Round,
			Timing:  orPlaceholder(r.Timing),
			Notes:   orPlaceholder(r.Notes),
		})
	}
	return rows
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
