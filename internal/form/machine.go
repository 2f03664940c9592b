// Package form implements the prediction form as an explicit state machine.
//
// The record only changes through Transition, which applies the cascade
// clears (fighter clears round and timing, round clears timing) in the same
// step as the change that causes them.
package form

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// State is the progression stage of a form
type State int

const (
	StateEmpty State = iota
	StateContactEntered
	StateFighterChosen
	StateRoundChosen
	StateReadyToSubmit
	StateSubmitting
)

var stateNames = map[State]string{
	StateEmpty:          "empty",
	StateContactEntered: "contact_entered",
	StateFighterChosen:  "fighter_chosen",
	StateRoundChosen:    "round_chosen",
	StateReadyToSubmit:  "ready_to_submit",
	StateSubmitting:     "submitting",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name for JSON views
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email looks like local@domain.tld
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// CanSelectFighter is the gating rule for the fighter step
func CanSelectFighter(in models.PredictionInput) bool {
	return in.Name != "" && ValidEmail(in.Email)
}

// Ready reports whether the record can be submitted
func Ready(in models.PredictionInput) bool {
	return in.Round != "" && (in.Timing != "" || in.Round == models.RoundPoints)
}

// StateOf derives the state of a record that is not being submitted
func StateOf(in models.PredictionInput) State {
	switch {
	case in.Fighter != "" && Ready(in):
		return StateReadyToSubmit
	case in.Fighter != "" && in.Round != "":
		return StateRoundChosen
	case in.Fighter != "":
		return StateFighterChosen
	case CanSelectFighter(in):
		return StateContactEntered
	default:
		return StateEmpty
	}
}

// Field names accepted by EditField
const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldNotes = "notes"
)

// Action is a user interaction with the form
type Action interface {
	action() string
}

// EditField updates one of the free-text fields
type EditField struct {
	Field string
	Value string
}

// SelectFighter picks the winner
type SelectFighter struct {
	Fighter models.Fighter
}

// SelectRound picks the round of the stoppage, or "points"
type SelectRound struct {
	Round string
}

// SelectTiming picks the phase of the round
type SelectTiming struct {
	Timing models.Timing
}

func (EditField) action() string     { return "edit" }
func (SelectFighter) action() string { return "fighter" }
func (SelectRound) action() string   { return "round" }
func (SelectTiming) action() string  { return "timing" }

// ActionName returns the metric/log label of an action
func ActionName(a Action) string {
	if a == nil {
		return "unknown"
	}
	return a.action()
}

// Transition applies a to in and returns the next record. On error the
// returned record equals in.
func Transition(in models.PredictionInput, a Action) (models.PredictionInput, error) {
	next := in

	switch act := a.(type) {
	case EditField:
		if !utf8.ValidString(act.Value) {
			return in, &ValidationError{Field: act.Field, Reason: "must be valid UTF-8 text"}
		}
		switch act.Field {
		case FieldName:
			next.Name = act.Value
		case FieldEmail:
			next.Email = act.Value
		case FieldNotes:
			next.Notes = truncate(act.Value, models.MaxNotesLength)
		default:
			return in, fmt.Errorf("field %q: %w", act.Field, ErrInvalidChoice)
		}

	case SelectFighter:
		if !act.Fighter.Valid() {
			return in, fmt.Errorf("fighter %q: %w", act.Fighter, ErrInvalidChoice)
		}
		if in.Name == "" {
			return in, &ValidationError{Field: FieldName, Reason: "name is required"}
		}
		if !ValidEmail(in.Email) {
			return in, &ValidationError{Field: FieldEmail, Reason: "email address is not valid"}
		}
		next.Fighter = act.Fighter
		next.Round = ""
		next.Timing = ""

	case SelectRound:
		if !models.ValidRound(act.Round) {
			return in, fmt.Errorf("round %q: %w", act.Round, ErrInvalidChoice)
		}
		if in.Fighter == "" {
			return in, fmt.Errorf("round: %w", ErrStepLocked)
		}
		next.Round = act.Round
		next.Timing = ""

	case SelectTiming:
		if !act.Timing.Valid() {
			return in, fmt.Errorf("timing %q: %w", act.Timing, ErrInvalidChoice)
		}
		if !models.IsNumericRound(in.Round) {
			return in, fmt.Errorf("timing: %w", ErrStepLocked)
		}
		next.Timing = act.Timing

	default:
		return in, fmt.Errorf("action %T: %w", a, ErrInvalidChoice)
	}

	return next, nil
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
