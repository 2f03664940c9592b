package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/fightpick/internal/form"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/metrics"
	"github.com/Billy-Davies-2/fightpick/internal/models"
	"github.com/Billy-Davies-2/fightpick/internal/pubsub"
	"github.com/Billy-Davies-2/fightpick/internal/results"
)

// Bus is the part of the event bus StreamEvents reads from
type Bus interface {
	Subscribe() chan pubsub.Event
	Unsubscribe(chan pubsub.Event)
}

// Server implements the gRPC PredictionService
type Server struct {
	fetcher   results.Fetcher
	submitter form.Submitter
	bus       Bus
	metrics   *metrics.Metrics
	timeout   time.Duration
}

// NewServer creates a new gRPC server. A nil m uses the process-wide metrics.
func NewServer(fetcher results.Fetcher, submitter form.Submitter, bus Bus, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.Default()
	}
	return &Server{
		fetcher:   fetcher,
		submitter: submitter,
		bus:       bus,
		metrics:   m,
		timeout:   10 * time.Second,
	}
}

// SubmitPrediction replays the request through a fresh form, so remote
// clients pass the same gating as the web form, then sends it.
func (s *Server) SubmitPrediction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := inputFromStruct(req)
	logger.Info("gRPC: Submitting prediction", "fighter", in.Fighter, "round", in.Round)

	f := form.New()
	for _, a := range actionsFor(in) {
		err := f.Dispatch(a)
		s.metrics.RecordFormAction(form.ActionName(a), outcomeOf(err))
		if err != nil {
			logger.Debug("gRPC: Prediction rejected", "action", form.ActionName(a), "error", err)
			return nil, toStatus(err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	ack, err := f.Submit(ctx, s.submitter)
	if err != nil {
		var serr *form.SubmitError
		if errors.As(err, &serr) {
			s.metrics.RecordSubmission(metrics.OutcomeError, time.Since(start))
			logger.Error("gRPC: Failed to submit prediction", "error", err)
		} else {
			s.metrics.RecordSubmission(metrics.OutcomeRejected, time.Since(start))
		}
		return nil, toStatus(err)
	}
	s.metrics.RecordSubmission(metrics.OutcomeOK, time.Since(start))

	reply, err := structpb.NewStruct(map[string]interface{}{
		"id":         ack.ID,
		"receivedAt": ack.ReceivedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		logger.Error("gRPC: Failed to encode submission ack", "id", ack.ID, "error", err)
		return nil, toStatus(err)
	}
	return reply, nil
}

// FetchResults returns every stored prediction
func (s *Server) FetchResults(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	records, err := s.fetcher.FetchResults(ctx)
	if err != nil {
		s.metrics.RecordResultsFetch(metrics.OutcomeError)
		logger.Error("gRPC: Failed to fetch results", "error", err)
		return nil, toStatus(&results.FetchError{Err: err})
	}

	rows := make([]interface{}, len(records))
	for i, r := range records {
		rows[i] = map[string]interface{}{
			"name":    r.Name,
			"fighter": r.Fighter,
			"round":   r.Round,
			"timing":  r.Timing,
			"notes":   r.Notes,
		}
	}
	reply, err := structpb.NewStruct(map[string]interface{}{"results": rows})
	if err != nil {
		s.metrics.RecordResultsFetch(metrics.OutcomeError)
		logger.Error("gRPC: Failed to encode results", "count", len(records), "error", err)
		return nil, toStatus(err)
	}
	s.metrics.RecordResultsFetch(metrics.OutcomeOK)
	return reply, nil
}

// StreamEvents streams bus events to the client until it disconnects
func (s *Server) StreamEvents(_ *emptypb.Empty, stream EventStream) error {
	logger.Debug("gRPC: New client connected to event stream")
	eventChan := s.bus.Subscribe()
	defer s.bus.Unsubscribe(eventChan)

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return status.Error(codes.Unavailable, "event bus closed")
			}
			msg, err := eventToStruct(event.Public())
			if err != nil {
				logger.Warn("gRPC: Dropping unencodable event", "type", event.Type, "error", err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream")
			return nil
		}
	}
}

// actionsFor lists the form actions that rebuild in, in the order a user
// would take them. Unset steps are skipped so Submit reports them as not ready.
func actionsFor(in models.PredictionInput) []form.Action {
	actions := []form.Action{
		form.EditField{Field: form.FieldName, Value: in.Name},
		form.EditField{Field: form.FieldEmail, Value: in.Email},
	}
	if in.Fighter != "" {
		actions = append(actions, form.SelectFighter{Fighter: in.Fighter})
	}
	if in.Round != "" {
		actions = append(actions, form.SelectRound{Round: in.Round})
	}
	if in.Timing != "" {
		actions = append(actions, form.SelectTiming{Timing: in.Timing})
	}
	if in.Notes != "" {
		actions = append(actions, form.EditField{Field: form.FieldNotes, Value: in.Notes})
	}
	return actions
}

func inputFromStruct(req *structpb.Struct) models.PredictionInput {
	str := func(key string) string {
		return req.GetFields()[key].GetStringValue()
	}
	notes := str("notes")
	if notes == "" {
		notes = str("additionalNotes")
	}
	return models.PredictionInput{
		Name:    str("name"),
		Email:   str("email"),
		Fighter: models.Fighter(str("fighter")),
		Round:   str("round"),
		Timing:  models.Timing(str("timing")),
		Notes:   notes,
	}
}

func eventToStruct(e pubsub.Event) (*structpb.Struct, error) {
	payload := e.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return structpb.NewStruct(map[string]interface{}{
		"type":    e.Type,
		"time":    e.Time.UTC().Format(time.RFC3339Nano),
		"payload": payload,
	})
}

func outcomeOf(err error) string {
	if err != nil {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeOK
}

// toStatus maps domain errors onto gRPC status codes
func toStatus(err error) error {
	var verr *form.ValidationError
	var serr *form.SubmitError
	var ferr *results.FetchError

	switch {
	case errors.As(err, &verr), errors.Is(err, form.ErrInvalidChoice):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, form.ErrNotReady), errors.Is(err, form.ErrStepLocked), errors.Is(err, form.ErrSubmitInFlight):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &serr), errors.As(err, &ferr):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
