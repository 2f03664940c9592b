package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/analytics"
	"github.com/Billy-Davies-2/fightpick/internal/dal"
	"github.com/Billy-Davies-2/fightpick/internal/form"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/metrics"
	"github.com/Billy-Davies-2/fightpick/internal/models"
	"github.com/Billy-Davies-2/fightpick/internal/pubsub"
	"github.com/Billy-Davies-2/fightpick/internal/results"
	"github.com/Billy-Davies-2/fightpick/internal/session"
)

// Bus is the part of the event bus the handlers use
type Bus interface {
	Publish(pubsub.Event)
	Subscribe() chan pubsub.Event
	Unsubscribe(chan pubsub.Event)
}

// Deps are the collaborators of the HTTP layer. Store is required. Submitter
// defaults to Store announcing on Bus; a nil Sink leaves analytics out of the
// health report.
type Deps struct {
	Store         dal.PredictionDAL
	Submitter     form.Submitter
	Bus           Bus
	Sessions      *session.Store
	Metrics       *metrics.Metrics
	Sink          analytics.Sink
	Locale        string // forces the results locale when set
	SubmitTimeout time.Duration
}

// Handlers serves the prediction pages and JSON API
type Handlers struct {
	store     dal.PredictionDAL
	submitter form.Submitter
	bus       Bus
	sessions  *session.Store
	metrics   *metrics.Metrics
	sink      analytics.Sink
	locale    string
	timeout   time.Duration
	pages     *pages
}

// New creates the handlers
func New(d Deps) *Handlers {
	if d.Bus == nil {
		d.Bus = pubsub.New()
	}
	if d.Sessions == nil {
		d.Sessions = session.NewStore(24 * time.Hour)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Default()
	}
	if d.SubmitTimeout <= 0 {
		d.SubmitTimeout = 10 * time.Second
	}

	h := &Handlers{
		store:    d.Store,
		bus:      d.Bus,
		sessions: d.Sessions,
		metrics:  d.Metrics,
		sink:     d.Sink,
		locale:   d.Locale,
		timeout:  d.SubmitTimeout,
		pages:    mustParsePages(),
	}
	h.submitter = d.Submitter
	if h.submitter == nil {
		h.submitter = pubsub.Announce(d.Store, d.Bus)
	}
	return h
}

// Routes returns the service mux
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()

	withSession := func(endpoint string, fn http.HandlerFunc) http.Handler {
		return h.metrics.Middleware(endpoint, h.sessions.Middleware(fn))
	}
	plain := func(endpoint string, fn http.HandlerFunc) http.Handler {
		return h.metrics.Middleware(endpoint, fn)
	}

	// Pages
	mux.Handle("GET /{$}", plain("home", h.Home))
	mux.Handle("GET /predict", withSession("predict", h.PredictPage))
	mux.Handle("POST /predict", withSession("predict", h.PredictAction))
	mux.Handle("GET /results", plain("results", h.ResultsPage))

	// Form API
	mux.Handle("GET /api/form", withSession("api_form", h.GetForm))
	mux.Handle("POST /api/form/field", withSession("api_form_field", h.EditField))
	mux.Handle("POST /api/form/fighter", withSession("api_form_fighter", h.SelectFighter))
	mux.Handle("POST /api/form/round", withSession("api_form_round", h.SelectRound))
	mux.Handle("POST /api/form/timing", withSession("api_form_timing", h.SelectTiming))
	mux.Handle("POST /api/form/submit", withSession("api_form_submit", h.SubmitForm))
	mux.Handle("POST /api/form/reset", withSession("api_form_reset", h.ResetForm))

	// Results and events
	mux.Handle("GET /api/results", plain("api_results", h.GetResults))
	mux.Handle("GET /api/events", plain("api_events", h.EventsSSE))
	mux.Handle("GET /api/placeholder/{w}/{h}", plain("placeholder", h.Placeholder))

	// Health and metrics
	mux.Handle("GET /api/health", plain("health", h.Health))
	mux.Handle("GET /healthz", plain("healthz", h.Liveness))
	mux.Handle("GET /readyz", plain("readyz", h.Readiness))
	mux.Handle("GET /metrics", h.metrics.Handler())

	return mux
}

// Home redirects to the prediction form
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/predict", http.StatusSeeOther)
}

// dispatch applies an action to the visitor's form and records the outcome
func (h *Handlers) dispatch(f *form.Form, a form.Action) error {
	err := f.Dispatch(a)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeRejected
		logger.Debug("Form action rejected", "action", form.ActionName(a), "error", err)
	}
	h.metrics.RecordFormAction(form.ActionName(a), outcome)
	return err
}

// submit sends the visitor's prediction, bounded by the submit timeout
func (h *Handlers) submit(ctx context.Context, f *form.Form) (models.Ack, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	ack, err := f.Submit(ctx, h.submitter)
	took := time.Since(start)

	var serr *form.SubmitError
	switch {
	case err == nil:
		h.metrics.RecordSubmission(metrics.OutcomeOK, took)
		logger.Info("Prediction submitted", "id", ack.ID, "duration", took)
	case errors.As(err, &serr):
		h.metrics.RecordSubmission(metrics.OutcomeError, took)
		logger.Error("Prediction submission failed", "error", err, "duration", took)
	default:
		h.metrics.RecordSubmission(metrics.OutcomeRejected, took)
		logger.Debug("Prediction submission rejected", "error", err)
	}
	return ack, err
}

// loadResults builds and loads a results page for the request's locale
func (h *Handlers) loadResults(r *http.Request) (*results.Page, error) {
	page := results.New(h.store, h.localeFor(r))
	err := page.Load(r.Context())
	if err != nil {
		h.metrics.RecordResultsFetch(metrics.OutcomeError)
		logger.Error("Failed to load results", "error", err)
	} else {
		h.metrics.RecordResultsFetch(metrics.OutcomeOK)
	}
	return page, err
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var verr *form.ValidationError
	var serr *form.SubmitError
	var ferr *results.FetchError

	switch {
	case errors.As(err, &verr), errors.Is(err, form.ErrInvalidChoice):
		return http.StatusBadRequest
	case errors.Is(err, form.ErrNotReady), errors.Is(err, form.ErrSubmitInFlight), errors.Is(err, form.ErrStepLocked):
		return http.StatusConflict
	case errors.As(err, &serr), errors.As(err, &ferr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}
