package fuzz

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Billy-Davies-2/fightpick/internal/dal"
	"github.com/Billy-Davies-2/fightpick/internal/handlers"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/models"
	"github.com/Billy-Davies-2/fightpick/internal/mocks"
)

func init() {
	logger.Init("error")
}

func newRoutes() http.Handler {
	return handlers.New(handlers.Deps{
		Store:     dal.NewMemoryDAL(),
		Submitter: &mocks.Submitter{},
	}).Routes()
}

// formView is the part of the JSON view the invariants look at
type formView struct {
	State string                 `json:"state"`
	Input models.PredictionInput `json:"input"`
}

// checkInvariants fails when a view breaks the ordering of the form steps
func checkInvariants(t *testing.T, v formView) {
	t.Helper()
	in := v.Input
	if in.Fighter != "" && !in.Fighter.Valid() {
		t.Fatalf("unknown fighter stored: %q", in.Fighter)
	}
	if in.Round != "" && (in.Fighter == "" || !models.ValidRound(in.Round)) {
		t.Fatalf("round %q stored without a fighter or out of range", in.Round)
	}
	if in.Timing != "" && !models.IsNumericRound(in.Round) {
		t.Fatalf("timing %q stored for round %q", in.Timing, in.Round)
	}
	if len([]rune(in.Notes)) > models.MaxNotesLength {
		t.Fatalf("notes exceed %d characters", models.MaxNotesLength)
	}
}

// FuzzHTTPFormActions replays a fixed sequence of API calls where every body is
// derived from the fuzz input
func FuzzHTTPFormActions(f *testing.F) {
	f.Add(`{"field":"name","value":"Alice"}`, `{"fighter":"Usyk"}`, `{"round":"3"}`, `{"timing":"Early"}`)
	f.Add(`{"field":"email","value":"a@b.co"}`, `{"fighter":"Fury"}`, `{"round":"points"}`, `{"timing":"Late"}`)
	f.Add(`{"field":"additionalNotes","value":""}`, `{"fighter":""}`, `{"round":"13"}`, `{}`)
	f.Add(`not json`, `{"fighter":1}`, `[]`, `null`)

	f.Fuzz(func(t *testing.T, field, fighter, round, timing string) {
		routes := newRoutes()
		var cookie *http.Cookie

		steps := []struct{ path, body string }{
			{"/api/form/field", `{"field":"name","value":"Fuzz"}`},
			{"/api/form/field", `{"field":"email","value":"fuzz@example.com"}`},
			{"/api/form/field", field},
			{"/api/form/fighter", fighter},
			{"/api/form/round", round},
			{"/api/form/timing", timing},
			{"/api/form/submit", `{}`},
		}
		for _, s := range steps {
			req := httptest.NewRequest(http.MethodPost, s.path, bytes.NewBufferString(s.body))
			req.Header.Set("Content-Type", "application/json")
			if cookie != nil {
				req.AddCookie(cookie)
			}
			w := httptest.NewRecorder()
			routes.ServeHTTP(w, req)

			if cookies := w.Result().Cookies(); len(cookies) > 0 {
				cookie = cookies[0]
			}
			if w.Code >= http.StatusInternalServerError {
				t.Fatalf("%s %q: status %d: %s", s.path, s.body, w.Code, w.Body.String())
			}
			if w.Code == http.StatusOK {
				var v formView
				if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
					t.Fatalf("%s: undecodable view: %v", s.path, err)
				}
				checkInvariants(t, v)
			}
		}
	})
}

// FuzzHTTPPredictAction fuzzes the plain HTML form handler
func FuzzHTTPPredictAction(f *testing.F) {
	f.Add("Alice", "alice@example.com", "fighter", "Usyk", "")
	f.Add("", "bad", "round", "points", "notes")
	f.Add("Bob", "bob@example.com", "submit", "", string(make([]byte, 300)))
	f.Add("x", "y", "dance", "<script>", "")

	f.Fuzz(func(t *testing.T, name, email, action, value, notes string) {
		routes := newRoutes()

		form := url.Values{"name": {name}, "email": {email}, "additionalNotes": {notes}, "action": {action}, "value": {value}}
		req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		routes.ServeHTTP(w, req)

		if w.Code >= http.StatusInternalServerError {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
	})
}

// FuzzHTTPPlaceholder fuzzes the placeholder image dimensions and label
func FuzzHTTPPlaceholder(f *testing.F) {
	f.Add("200", "300", "Fury")
	f.Add("0", "-1", "")
	f.Add("99999999999999999999", "1", "<svg>")
	f.Add("abc", "2000", "\x00")

	f.Fuzz(func(t *testing.T, width, height, label string) {
		routes := newRoutes()

		target := "/api/placeholder/" + url.PathEscape(width) + "/" + url.PathEscape(height) + "?label=" + url.QueryEscape(label)
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		routes.ServeHTTP(w, req)

		switch w.Code {
		case http.StatusOK, http.StatusBadRequest, http.StatusNotFound, http.StatusMovedPermanently:
		default:
			t.Fatalf("%s: unexpected status %d", target, w.Code)
		}
		if w.Code == http.StatusOK && bytes.Contains(w.Body.Bytes(), []byte("<script")) {
			t.Fatalf("label was not escaped: %s", w.Body.String())
		}
	})
}

// FuzzJSONParsing fuzzes general JSON parsing
func FuzzJSONParsing(f *testing.F) {
	f.Add(`{"key":"value"}`)
	f.Add(`[1,2,3]`)
	f.Add(`null`)
	f.Add(`"string"`)
	f.Add(`123`)
	f.Add(`true`)

	f.Fuzz(func(t *testing.T, data string) {
		var result models.PredictionInput
		// Should not panic on any input
		json.Unmarshal([]byte(data), &result)
	})
}
