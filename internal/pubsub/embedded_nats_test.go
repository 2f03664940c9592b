package pubsub

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

func newEmbedded(t *testing.T) *EmbeddedNATSPubSub {
	t.Helper()
	ps, err := NewEmbeddedNATSPubSub(DefaultEmbeddedNATSOptions())
	if err != nil {
		t.Fatalf("Failed to create embedded NATS: %v", err)
	}
	t.Cleanup(ps.Close)
	return ps
}

func TestEmbeddedNATSStarts(t *testing.T) {
	ps := newEmbedded(t)

	if ps.ServerURL() == "" {
		t.Error("server URL should not be empty")
	}
	if ps.subject != DefaultSubject || ps.stream != DefaultStream {
		t.Errorf("unexpected defaults: subject=%s stream=%s", ps.subject, ps.stream)
	}
}

func TestEmbeddedNATSPublishAndReceive(t *testing.T) {
	ps := newEmbedded(t)
	a, b := ps.Subscribe(), ps.Subscribe()

	ack := models.Ack{ID: "id-1", ReceivedAt: time.Now().UTC()}
	ps.Publish(NewPredictionEvent(ack, models.PredictionInput{
		Name: "Bob", Fighter: models.FighterFury, Round: models.RoundPoints,
	}))

	for _, ch := range []chan Event{a, b} {
		ev := receive(t, ch)
		p, err := ev.Prediction()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.ID != "id-1" || p.Name != "Bob" || p.Round != models.RoundPoints {
			t.Errorf("unexpected prediction %+v", p)
		}
	}
}

func TestEmbeddedNATSUnsubscribe(t *testing.T) {
	ps := newEmbedded(t)
	ch := ps.Subscribe()
	ps.Unsubscribe(ch)

	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", ps.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestEmbeddedNATSDurableConsumer(t *testing.T) {
	ps := newEmbedded(t)

	// Published before the consumer exists; durable consumers see history
	ps.Publish(Event{Type: EventPredictionsSeeded})

	var handled, failures atomic.Int32
	stop, err := ps.SubscribeDurable("test-consumer", func(ev Event) error {
		if failures.Add(1) == 1 {
			return errTransient
		}
		handled.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeDurable: %v", err)
	}
	defer stop()

	deadline := time.Now().Add(5 * time.Second)
	for handled.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if handled.Load() != 1 {
		t.Errorf("expected event handled once after redelivery, got %d", handled.Load())
	}
}

func TestEmbeddedNATSCloseClosesSubscribers(t *testing.T) {
	ps, err := NewEmbeddedNATSPubSub(EmbeddedNATSOptions{Subject: "test.close", StreamName: "TEST_CLOSE"})
	if err != nil {
		t.Fatalf("Failed to create embedded NATS: %v", err)
	}
	ch := ps.Subscribe()
	ps.Close()

	if _, ok := <-ch; ok {
		t.Error("subscriber should be closed")
	}
}

var errTransient = errors.New("transient")
