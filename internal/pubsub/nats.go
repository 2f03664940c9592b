package pubsub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/fightpick/internal/logger"
)

// Defaults for the prediction event stream
const (
	DefaultSubject = "predictions.events"
	DefaultStream  = "PREDICTION_EVENTS"
)

// NATSOptions configures a JetStream-backed bus
type NATSOptions struct {
	URL     string
	Subject string
	Stream  string
	Storage nats.StorageType
	MaxAge  time.Duration // 0 keeps events indefinitely
}

func (o *NATSOptions) setDefaults() {
	if o.Subject == "" {
		o.Subject = DefaultSubject
	}
	if o.Stream == "" {
		o.Stream = DefaultStream
	}
}

// NATSPubSub implements pub/sub using NATS JetStream. Events published by any
// instance are delivered to the local subscribers of every instance.
type NATSPubSub struct {
	nc          *nats.Conn
	js          nats.JetStreamContext
	sub         *nats.Subscription
	subject     string
	stream      string
	subscribers []chan Event
	mu          sync.RWMutex
}

// NewNATSPubSub connects to an external NATS server
func NewNATSPubSub(opts NATSOptions) (*NATSPubSub, error) {
	opts.setDefaults()

	nc, err := nats.Connect(opts.URL,
		nats.Name("fightpick"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ps, err := newJetStreamPubSub(nc, opts)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return ps, nil
}

func newJetStreamPubSub(nc *nats.Conn, opts NATSOptions) (*NATSPubSub, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(opts.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     opts.Stream,
			Subjects: []string{opts.Subject},
			Storage:  opts.Storage,
			MaxAge:   opts.MaxAge,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", opts.Stream, err)
		}
		logger.Info("JetStream stream created", "stream", opts.Stream, "subject", opts.Subject)
	}

	p := &NATSPubSub{
		nc:      nc,
		js:      js,
		subject: opts.Subject,
		stream:  opts.Stream,
	}

	// Only events published after start are broadcast; history is for durable consumers
	p.sub, err = js.Subscribe(opts.Subject, p.broadcast, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", opts.Subject, err)
	}
	return p, nil
}

func (p *NATSPubSub) broadcast(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err)
		msg.Term()
		return
	}

	p.mu.RLock()
	for _, sub := range p.subscribers {
		select {
		case sub <- event:
		default:
			logger.Warn("NATS: Skipping slow subscriber", "type", event.Type)
		}
	}
	p.mu.RUnlock()

	msg.Ack()
}

// Publish publishes an event to the JetStream subject
func (p *NATSPubSub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "type", event.Type)
		return
	}

	if _, err := p.js.Publish(p.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", p.subject, "type", event.Type)
		return
	}
	logger.Debug("Published event to NATS", "type", event.Type, "subject", p.subject)
}

// Subscribe creates a subscription channel for events
func (p *NATSPubSub) Subscribe() chan Event {
	ch := make(chan Event, 100)

	p.mu.Lock()
	p.subscribers = append(p.subscribers, ch)
	p.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscription channel
func (p *NATSPubSub) Unsubscribe(ch chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.subscribers {
		if sub == ch {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// SubscribeDurable creates a durable JetStream consumer. Across instances
// sharing consumerName each event is handled once; an error from handler
// asks JetStream to redeliver.
func (p *NATSPubSub) SubscribeDurable(consumerName string, handler func(Event) error) (func(), error) {
	sub, err := p.js.Subscribe(p.subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event", "error", err, "consumer", consumerName)
			msg.Term()
			return
		}

		if err := handler(event); err != nil {
			logger.Warn("Durable handler failed, requesting redelivery", "error", err, "consumer", consumerName)
			msg.NakWithDelay(time.Second)
			return
		}
		msg.Ack()
	}, nats.Durable(consumerName), nats.ManualAck(), nats.DeliverAll())
	if err != nil {
		return nil, err
	}

	return func() {
		if err := sub.Drain(); err != nil {
			logger.Warn("Failed to drain durable subscription", "error", err, "consumer", consumerName)
		}
	}, nil
}

// SubscriberCount returns the number of active local subscribers
func (p *NATSPubSub) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

// Close closes the local subscribers and the NATS connection
func (p *NATSPubSub) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.subscribers {
		close(sub)
	}
	p.subscribers = nil

	if p.sub != nil {
		_ = p.sub.Unsubscribe()
	}
	if p.nc != nil {
		p.nc.Close()
	}
}
