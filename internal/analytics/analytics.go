// Package analytics mirrors accepted predictions from the event bus into a
// reporting sink.
package analytics

import (
	"context"

	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/models"
	"github.com/Billy-Davies-2/fightpick/internal/pubsub"
)

// ConsumerName is the durable JetStream consumer shared by all replicas
const ConsumerName = "fightpick-analytics"

// Sink stores predictions for reporting
type Sink interface {
	RecordPrediction(ctx context.Context, p models.StoredPrediction) error
	FighterCounts(ctx context.Context) (map[string]int, error)
	Close() error
}

// Source is the subset of a bus the consumer reads from
type Source interface {
	Subscribe() chan pubsub.Event
	Unsubscribe(chan pubsub.Event)
}

// DurableSource is implemented by JetStream-backed buses
type DurableSource interface {
	SubscribeDurable(consumerName string, handler func(pubsub.Event) error) (func(), error)
}

// Run feeds prediction events into sink until ctx is done. A durable source
// is preferred so that every event is recorded once across replicas.
func Run(ctx context.Context, src Source, sink Sink) error {
	if d, ok := src.(DurableSource); ok {
		stop, err := d.SubscribeDurable(ConsumerName, func(ev pubsub.Event) error {
			return Handle(ctx, sink, ev)
		})
		if err != nil {
			return err
		}
		logger.Info("Analytics consumer started", "mode", "durable", "consumer", ConsumerName)
		<-ctx.Done()
		stop()
		return nil
	}

	ch := src.Subscribe()
	defer src.Unsubscribe(ch)
	logger.Info("Analytics consumer started", "mode", "local")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := Handle(ctx, sink, ev); err != nil {
				logger.Warn("Failed to record prediction", "error", err)
			}
		}
	}
}

// Handle records a single event. Events of other types and undecodable
// payloads are skipped; only sink failures are returned.
func Handle(ctx context.Context, sink Sink, ev pubsub.Event) error {
	if ev.Type != pubsub.EventPredictionSubmitted {
		return nil
	}

	p, err := ev.Prediction()
	if err != nil {
		logger.Warn("Skipping malformed prediction event", "error", err)
		return nil
	}
	return sink.RecordPrediction(ctx, p)
}
