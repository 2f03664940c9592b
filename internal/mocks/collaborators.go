package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

// Submitter is a scripted form.Submitter. The first Failures calls return
// Err; later calls succeed and are recorded.
type Submitter struct {
	mu       sync.Mutex
	Failures int
	Err      error
	Delay    time.Duration
	calls    int
	accepted []models.PredictionInput
}

func (s *Submitter) SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error) {
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return models.Ack{}, ctx.Err()
		case <-time.After(s.Delay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls <= s.Failures {
		return models.Ack{}, s.Err
	}
	s.accepted = append(s.accepted, input)
	return models.Ack{ID: uuid.NewString(), ReceivedAt: time.Now().UTC()}, nil
}

// Calls returns how many submissions were attempted
func (s *Submitter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Accepted returns the submissions that succeeded
func (s *Submitter) Accepted() []models.PredictionInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PredictionInput, len(s.accepted))
	copy(out, s.accepted)
	return out
}

// Fetcher is a results.Fetcher returning fixed rows or a fixed error
type Fetcher struct {
	Records []models.PredictionRecord
	Err     error
}

func (f Fetcher) FetchResults(ctx context.Context) ([]models.PredictionRecord, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Records, nil
}

// MockRecords are the two rows the results page showed before a backend existed
func MockRecords() []models.PredictionRecord {
	return []models.PredictionRecord{
		{Name: "John", Fighter: "Usyk", Round: "3", Timing: "early"},
		{Name: "Jane", Fighter: "Fury", Round: "points"},
	}
}
