package form

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// Submitter sends a completed prediction
type Submitter interface {
	SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error)
}

// SubmitterFunc adapts a function to Submitter
type SubmitterFunc func(ctx context.Context, input models.PredictionInput) (models.Ack, error)

func (fn SubmitterFunc) SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error) {
	return fn(ctx, input)
}

// Form is one visitor's prediction form
type Form struct {
	mu         sync.Mutex
	input      models.PredictionInput
	submitting bool
	lastErr    error
	lastAck    *models.Ack
}

// New creates an empty form
func New() *Form {
	return &Form{}
}

// View is a render-ready snapshot of a form
type View struct {
	State            State                  `json:"state"`
	Input            models.PredictionInput `json:"input"`
	CanSelectFighter bool                   `json:"canSelectFighter"`
	ShowRounds       bool                   `json:"showRounds"`
	ShowTiming       bool                   `json:"showTiming"`
	ShowNotes        bool                   `json:"showNotes"`
	ShowSubmit       bool                   `json:"showSubmit"`
	Busy             bool                   `json:"busy"`
	NotesRemaining   int                    `json:"notesRemaining"`
	Error            string                 `json:"error,omitempty"`
	ErrorKind        string                 `json:"errorKind,omitempty"`
	LastAck          *models.Ack            `json:"lastAck,omitempty"`
}

// Error kinds exposed on View.ErrorKind
const (
	ErrorKindValidation = "validation"
	ErrorKindSubmit     = "submit"
)

// Dispatch applies a user action. Validation failures are kept on the form so
// the next render can explain why the step did not unlock.
func (f *Form) Dispatch(a Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitting {
		return ErrSubmitInFlight
	}

	next, err := Transition(f.input, a)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			f.lastErr = err
		}
		return err
	}

	f.input = next
	f.lastErr = nil
	f.lastAck = nil
	return nil
}

// Submit sends the record through s. The form lock is not held while s runs;
// every other action is rejected with ErrSubmitInFlight until it returns. On
// success the record is cleared, on failure it is kept for a retry.
func (f *Form) Submit(ctx context.Context, s Submitter) (models.Ack, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return models.Ack{}, ErrSubmitInFlight
	}
	if StateOf(f.input) != StateReadyToSubmit {
		f.mu.Unlock()
		return models.Ack{}, ErrNotReady
	}
	f.submitting = true
	input := f.input
	f.mu.Unlock()

	ack, err := s.SubmitPrediction(ctx, input)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false

	if err != nil {
		serr := &SubmitError{Err: err}
		f.lastErr = serr
		return models.Ack{}, serr
	}

	f.input = models.PredictionInput{}
	f.lastErr = nil
	f.lastAck = &ack
	return ack, nil
}

// Reset clears the record and any pending error
func (f *Form) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitting {
		return ErrSubmitInFlight
	}
	f.input = models.PredictionInput{}
	f.lastErr = nil
	f.lastAck = nil
	return nil
}

// Input returns a copy of the current record
func (f *Form) Input() models.PredictionInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// State returns the current state
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

func (f *Form) stateLocked() State {
	if f.submitting {
		return StateSubmitting
	}
	return StateOf(f.input)
}

// Snapshot returns the view model for rendering
func (f *Form) Snapshot() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	in := f.input
	hasFighter := in.Fighter != ""
	v := View{
		State:            f.stateLocked(),
		Input:            in,
		CanSelectFighter: CanSelectFighter(in),
		ShowRounds:       hasFighter,
		ShowTiming:       hasFighter && models.IsNumericRound(in.Round),
		ShowNotes:        hasFighter && in.Round != "",
		ShowSubmit:       hasFighter && Ready(in),
		Busy:             f.submitting,
		NotesRemaining:   models.MaxNotesLength - utf8.RuneCountInString(in.Notes),
		LastAck:          f.lastAck,
	}

	if f.lastErr != nil {
		v.Error = f.lastErr.Error()
		var serr *SubmitError
		if errors.As(f.lastErr, &serr) {
			v.ErrorKind = ErrorKindSubmit
		} else {
			v.ErrorKind = ErrorKindValidation
		}
	}
	return v
}
