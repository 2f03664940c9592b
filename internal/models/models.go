package models

import "time"

// Fighter is one of the two contenders
type Fighter string

const (
	FighterFury Fighter = "Fury"
	FighterUsyk Fighter = "Usyk"
)

// Fighters lists the selectable fighters in display order
var Fighters = []Fighter{FighterFury, FighterUsyk}

// Valid reports whether f is a known fighter
func (f Fighter) Valid() bool {
	return f == FighterFury || f == FighterUsyk
}

// Timing is the phase of a round in which the stoppage is predicted
type Timing string

const (
	TimingEarly  Timing = "Early"
	TimingMiddle Timing = "Middle"
	TimingLate   Timing = "Late"
)

// Timings lists the selectable timings in display order
var Timings = []Timing{TimingEarly, TimingMiddle, TimingLate}

// Valid reports whether t is a known timing
func (t Timing) Valid() bool {
	return t == TimingEarly || t == TimingMiddle || t == TimingLate
}

// RoundPoints is the round value for a decision on the scorecards
const RoundPoints = "points"

// MaxRounds is the scheduled length of the fight
const MaxRounds = 12

// MaxNotesLength caps the free-text notes, in characters
const MaxNotesLength = 250

// Rounds returns the 13 round choices: "1".."12" followed by "points"
func Rounds() []string {
	rounds := make([]string, 0, MaxRounds+1)
	for i := 1; i <= MaxRounds; i++ {
		rounds = append(rounds, roundLabels[i-1])
	}
	return append(rounds, RoundPoints)
}

var roundLabels = [MaxRounds]string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}

// IsNumericRound reports whether r is one of "1".."12"
func IsNumericRound(r string) bool {
	for _, label := range roundLabels {
		if r == label {
			return true
		}
	}
	return false
}

// ValidRound reports whether r is a selectable round value
func ValidRound(r string) bool {
	return r == RoundPoints || IsNumericRound(r)
}

// PredictionInput is the mutable record behind the prediction form.
// Empty strings mean "unset".
type PredictionInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Fighter Fighter `json:"fighter"`
	Round   string  `json:"round"`
	Timing  Timing  `json:"timing"`
	Notes   string  `json:"additionalNotes"`
}

// IsEmpty reports whether every field is unset
func (p PredictionInput) IsEmpty() bool {
	return p == PredictionInput{}
}

// Record converts a completed input into its display row. Timing is dropped
// for decisions on points.
func (p PredictionInput) Record() PredictionRecord {
	rec := PredictionRecord{
		Name:    p.Name,
		Fighter: string(p.Fighter),
		Round:   p.Round,
		Notes:   p.Notes,
	}
	if p.Round != RoundPoints {
		rec.Timing = string(p.Timing)
	}
	return rec
}

// PredictionRecord is a read-only row on the results page
type PredictionRecord struct {
	Name    string `json:"name"`
	Fighter string `json:"fighter"`
	Round   string `json:"round"`
	Timing  string `json:"timing,omitempty"`
	Notes   string `json:"additionalNotes,omitempty"`
}

// StoredPrediction is a persisted submission
type StoredPrediction struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	PredictionRecord
}

// Ack acknowledges an accepted submission
type Ack struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"receivedAt"`
}
