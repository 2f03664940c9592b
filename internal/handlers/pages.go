package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/Billy-Davies-2/fightpick/internal/form"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/models"
	"github.com/Billy-Davies-2/fightpick/internal/results"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	predict *template.Template
	results *template.Template
}

func mustParsePages() *pages {
	parse := func(page string) *template.Template {
		return template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+page))
	}
	return &pages{
		predict: parse("predict.html"),
		results: parse("results.html"),
	}
}

// render executes into a buffer so a template error never leaves a half page
func render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		logger.Error("Failed to render template", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// roundOption is one button of the round grid
type roundOption struct {
	Value    string
	Label    string
	Selected bool
	Wide     bool
}

func roundOptions(selected string) []roundOption {
	opts := make([]roundOption, 0, models.MaxRounds+1)
	for _, r := range models.Rounds() {
		opt := roundOption{Value: r, Label: formCopy.RoundPrefix + r, Selected: r == selected}
		if r == models.RoundPoints {
			opt.Label = formCopy.ByPoints
			opt.Wide = true
		}
		opts = append(opts, opt)
	}
	return opts
}

type predictData struct {
	Copy     any
	Title    string
	Lang     string
	View     form.View
	Fighters []models.Fighter
	Rounds   []roundOption
	Timings  []models.Timing
	MaxNotes int
}

// PredictPage renders the visitor's form
func (h *Handlers) PredictPage(w http.ResponseWriter, r *http.Request) {
	view := formFrom(r).Snapshot()
	render(w, http.StatusOK, h.pages.predict, predictData{
		Copy:     formCopy,
		Title:    formCopy.Title,
		Lang:     "en",
		View:     view,
		Fighters: models.Fighters,
		Rounds:   roundOptions(view.Input.Round),
		Timings:  models.Timings,
		MaxNotes: models.MaxNotesLength,
	})
}

// PredictAction handles the plain HTML form. Text inputs posted with any
// action are applied first, then action (edit|fighter|round|timing|submit)
// with its value. Validation and submit failures are shown on the next
// render; other failures are answered directly.
func (h *Handlers) PredictAction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 8<<10)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	f := formFrom(r)

	var verr *form.ValidationError
	if err := h.applyEdits(f, r); err != nil {
		if errors.As(err, &verr) {
			// Rejected text skips the requested action and is shown on the page
			http.Redirect(w, r, "/predict", http.StatusSeeOther)
			return
		}
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	var err error
	value := r.Form.Get("value")
	switch action := r.Form.Get("action"); action {
	case "", "edit":
	case "fighter":
		err = h.dispatch(f, form.SelectFighter{Fighter: models.Fighter(value)})
	case "round":
		err = h.dispatch(f, form.SelectRound{Round: value})
	case "timing":
		err = h.dispatch(f, form.SelectTiming{Timing: models.Timing(value)})
	case "submit":
		_, err = h.submit(r.Context(), f)
	default:
		http.Error(w, "Unknown action "+strconv.Quote(action), http.StatusBadRequest)
		return
	}

	var serr *form.SubmitError
	if err != nil && !errors.As(err, &verr) && !errors.As(err, &serr) {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/predict", http.StatusSeeOther)
}

// applyEdits copies changed text inputs into the form
func (h *Handlers) applyEdits(f *form.Form, r *http.Request) error {
	current := f.Input()
	fields := []struct {
		param, field, current string
	}{
		{"name", form.FieldName, current.Name},
		{"email", form.FieldEmail, current.Email},
		{"additionalNotes", form.FieldNotes, current.Notes},
	}

	for _, fl := range fields {
		values, ok := r.PostForm[fl.param]
		if !ok || values[0] == fl.current {
			continue
		}
		if err := h.dispatch(f, form.EditField{Field: fl.field, Value: values[0]}); err != nil {
			return err
		}
	}
	return nil
}

type resultsData struct {
	Title  string
	Lang   string
	Trend  string
	Rows   []results.Row
	Error  string
	Locale string
}

// ResultsPage renders every stored prediction with the trend sentence
func (h *Handlers) ResultsPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.loadResults(r)

	data := resultsData{
		Title:  formCopy.Title,
		Lang:   page.Language(),
		Trend:  page.Trend(),
		Rows:   page.Rows(),
		Locale: page.Locale(),
	}
	status := http.StatusOK
	if err != nil {
		data.Error = err.Error()
		status = statusFor(err)
	}
	render(w, status, h.pages.results, data)
}
