package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/form"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/models"
	"github.com/Billy-Davies-2/fightpick/internal/session"
)

// errorResponse is the body of a failed form API call
type errorResponse struct {
	Error string     `json:"error"`
	View  *form.View `json:"view,omitempty"`
}

// formFrom returns the visitor's form attached by the session middleware
func formFrom(r *http.Request) *form.Form {
	return session.FromContext(r.Context()).Form
}

// respondForm writes the form view, or the error and the view behind it
func (h *Handlers) respondForm(w http.ResponseWriter, f *form.Form, err error) {
	view := f.Snapshot()
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), View: &view})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 8<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Warn("Failed to decode form request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// GetForm returns the visitor's form view
func (h *Handlers) GetForm(w http.ResponseWriter, r *http.Request) {
	h.respondForm(w, formFrom(r), nil)
}

// EditField updates name, email or notes
func (h *Handlers) EditField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Field == "additionalNotes" {
		req.Field = form.FieldNotes
	}

	f := formFrom(r)
	h.respondForm(w, f, h.dispatch(f, form.EditField{Field: req.Field, Value: req.Value}))
}

// SelectFighter picks the winner
func (h *Handlers) SelectFighter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fighter models.Fighter `json:"fighter"`
	}
	if !decode(w, r, &req) {
		return
	}

	f := formFrom(r)
	h.respondForm(w, f, h.dispatch(f, form.SelectFighter{Fighter: req.Fighter}))
}

// SelectRound picks the round or a points decision
func (h *Handlers) SelectRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Round string `json:"round"`
	}
	if !decode(w, r, &req) {
		return
	}

	f := formFrom(r)
	h.respondForm(w, f, h.dispatch(f, form.SelectRound{Round: req.Round}))
}

// SelectTiming picks early, middle or late
func (h *Handlers) SelectTiming(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Timing models.Timing `json:"timing"`
	}
	if !decode(w, r, &req) {
		return
	}

	f := formFrom(r)
	h.respondForm(w, f, h.dispatch(f, form.SelectTiming{Timing: req.Timing}))
}

// SubmitForm sends the completed prediction. The response carries the view
// after the attempt: an empty form with lastAck, or the kept record and error.
func (h *Handlers) SubmitForm(w http.ResponseWriter, r *http.Request) {
	f := formFrom(r)
	_, err := h.submit(r.Context(), f)
	h.respondForm(w, f, err)
}

// ResetForm clears the visitor's form
func (h *Handlers) ResetForm(w http.ResponseWriter, r *http.Request) {
	f := formFrom(r)
	h.respondForm(w, f, f.Reset())
}

// resultsResponse is the body of GET /api/results
type resultsResponse struct {
	Trend   string                    `json:"trend"`
	Locale  string                    `json:"locale"`
	Results []models.PredictionRecord `json:"results"`
	Error   string                    `json:"error,omitempty"`
}

// GetResults returns the stored predictions and the trend sentence
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	page, err := h.loadResults(r)

	resp := resultsResponse{
		Trend:   page.Trend(),
		Locale:  page.Locale(),
		Results: page.Records(),
	}

	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// EventsSSE streams bus events to the browser as Server-Sent Events
func (h *Handlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan := h.bus.Subscribe()
	defer h.bus.Unsubscribe(eventChan)

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Public())
			if err != nil {
				logger.Warn("Failed to marshal SSE event", "error", err, "type", event.Type)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		}
	}
}
