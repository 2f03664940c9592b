package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Billy-Davies-2/fightpick/internal/models"
)

func receive(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestPublishReachesEverySubscriber(t *testing.T) {
	ps := New()
	subs := []chan Event{ps.Subscribe(), ps.Subscribe(), ps.Subscribe()}

	ps.Publish(Event{Type: EventPredictionsReset})

	for i, ch := range subs {
		if got := receive(t, ch); got.Type != EventPredictionsReset {
			t.Errorf("subscriber %d: expected %s, got %s", i, EventPredictionsReset, got.Type)
		}
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	ps := New()
	ps.Publish(Event{Type: "nobody"})
}

func TestUnsubscribeClosesOnlyThatChannel(t *testing.T) {
	ps := New()
	a, b, c := ps.Subscribe(), ps.Subscribe(), ps.Subscribe()

	ps.Unsubscribe(b)
	if _, ok := <-b; ok {
		t.Error("unsubscribed channel should be closed")
	}
	if ps.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", ps.SubscriberCount())
	}

	ps.Publish(Event{Type: "after"})
	receive(t, a)
	receive(t, c)

	// unknown channels are ignored
	ps.Unsubscribe(make(chan Event))
	if ps.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", ps.SubscriberCount())
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	for i := 0; i < 15; i++ {
		ps.Publish(Event{Type: "fill"})
	}

	if len(ch) != 10 {
		t.Errorf("expected buffer of 10 events, got %d", len(ch))
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()
	ps.Close()

	if _, ok := <-ch; ok {
		t.Error("subscriber should be closed")
	}
	late := ps.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribing after close should yield a closed channel")
	}
	ps.Publish(Event{Type: "ignored"})
}

func TestConcurrentSubscribePublishUnsubscribe(t *testing.T) {
	ps := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := ps.Subscribe()
			time.Sleep(time.Millisecond)
			ps.Unsubscribe(ch)
		}()
		go func() {
			defer wg.Done()
			ps.Publish(Event{Type: "concurrent"})
		}()
	}
	wg.Wait()

	if ps.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", ps.SubscriberCount())
	}
}

// echoUpstream records what is published and echoes it to its subscribers
type echoUpstream struct {
	mu        sync.Mutex
	published []Event
	subs      []chan Event
}

func (u *echoUpstream) Publish(ev Event) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.published = append(u.published, ev)
	for _, ch := range u.subs {
		ch <- ev
	}
}

func (u *echoUpstream) Subscribe() chan Event {
	u.mu.Lock()
	defer u.mu.Unlock()
	ch := make(chan Event, 16)
	u.subs = append(u.subs, ch)
	return ch
}

func (u *echoUpstream) Unsubscribe(ch chan Event) {}

func (u *echoUpstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.published)
}

func TestUpstreamBridge(t *testing.T) {
	up := &echoUpstream{}
	ps := NewWithUpstream(up)
	ch := ps.Subscribe()

	ps.Publish(Event{Type: EventPredictionSubmitted})

	if got := receive(t, ch); got.Type != EventPredictionSubmitted {
		t.Errorf("expected echoed event, got %s", got.Type)
	}
	if up.count() != 1 {
		t.Errorf("expected 1 upstream publish, got %d", up.count())
	}
	select {
	case ev := <-ch:
		t.Errorf("event delivered twice: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPredictionEventRoundTrip(t *testing.T) {
	received := time.Date(2024, time.May, 18, 21, 30, 0, 0, time.UTC)
	ack := models.Ack{ID: "abc", ReceivedAt: received}
	input := models.PredictionInput{
		Name:    "Alice",
		Email:   "alice@example.com",
		Fighter: models.FighterUsyk,
		Round:   "9",
		Timing:  models.TimingMiddle,
		Notes:   "body shots",
	}

	ev := NewPredictionEvent(ack, input)
	if ev.Type != EventPredictionSubmitted {
		t.Fatalf("unexpected type %s", ev.Type)
	}

	p, err := ev.Prediction()
	if err != nil {
		t.Fatalf("Prediction() error: %v", err)
	}
	if p.ID != "abc" || p.Email != "alice@example.com" || !p.CreatedAt.Equal(received) {
		t.Errorf("unexpected storage fields: %+v", p)
	}
	if p.PredictionRecord != input.Record() {
		t.Errorf("expected record %+v, got %+v", input.Record(), p.PredictionRecord)
	}

	pub := ev.Public()
	if _, ok := pub.Payload["email"]; ok {
		t.Error("public event should not carry the email")
	}
	if _, ok := ev.Payload["email"]; !ok {
		t.Error("Public must not modify the original payload")
	}

	if _, err := (Event{Type: EventPredictionsReset}).Prediction(); err == nil {
		t.Error("expected error decoding a non-prediction event")
	}
}

type stubStore struct{ err error }

func (s stubStore) SubmitPrediction(ctx context.Context, input models.PredictionInput) (models.Ack, error) {
	if s.err != nil {
		return models.Ack{}, s.err
	}
	return models.Ack{ID: "ok", ReceivedAt: time.Now().UTC()}, nil
}

func TestAnnouncerPublishesOnlyAcceptedSubmissions(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()
	input := models.PredictionInput{Name: "A", Fighter: models.FighterFury, Round: "1", Timing: models.TimingEarly}

	if _, err := Announce(stubStore{err: errors.New("down")}, ps).SubmitPrediction(context.Background(), input); err == nil {
		t.Fatal("expected error")
	}
	if len(ch) != 0 {
		t.Fatal("failed submission must not be announced")
	}

	ack, err := Announce(stubStore{}, ps).SubmitPrediction(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	ev := receive(t, ch)
	p, err := ev.Prediction()
	if err != nil || p.ID != ack.ID {
		t.Errorf("unexpected event %+v (%v)", ev, err)
	}
}
