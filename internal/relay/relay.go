// Package relay bridges hierarchy change events onto Kafka so other
// dashboard services can refetch. Events are level-triggered signals with
// no node payload; consumers re-derive state from the hierarchy API.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/uplinehq/upline/internal/hierarchy"
)

// Producer is the slice of kafka.Writer the relay needs. ChannelProducer
// implements it in-process for tests.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaProducer creates a producer for the given brokers and topic.
func NewKafkaProducer(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(brokers, ",")...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

// Relay subscribes to a notifier and forwards each event to Kafka. Events
// are handed off through a buffered channel so publishers never block on
// broker I/O; when the buffer is full the event is dropped, which is safe
// because consumers refetch on the next signal anyway.
type Relay struct {
	producer Producer
	notifier *hierarchy.Notifier
	events   chan hierarchy.ChangeEvent
	handle   int
	stop     sync.Once
	done     chan struct{}
}

// New creates a relay over the given producer and notifier.
func New(producer Producer, notifier *hierarchy.Notifier) *Relay {
	return &Relay{
		producer: producer,
		notifier: notifier,
		events:   make(chan hierarchy.ChangeEvent, 64),
		done:     make(chan struct{}),
	}
}

// Start subscribes and begins forwarding until ctx is cancelled or Stop is
// called.
func (r *Relay) Start(ctx context.Context) {
	r.handle = r.notifier.Subscribe(func(ev hierarchy.ChangeEvent) {
		select {
		case r.events <- ev:
		default:
			slog.Warn("Relay buffer full, dropping event", "kind", ev.Kind)
		}
	})
	go r.run(ctx)
	slog.Info("Change relay started")
}

func (r *Relay) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case ev := <-r.events:
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Error("Relay encode failed", "error", err)
				continue
			}
			msg := kafka.Message{
				Key:   []byte(ev.TenantID),
				Value: payload,
			}
			if err := r.producer.WriteMessages(ctx, msg); err != nil {
				slog.Warn("Relay publish failed", "kind", ev.Kind, "error", err)
			}
		}
	}
}

// Stop unsubscribes and shuts the forwarding loop down.
func (r *Relay) Stop() {
	r.stop.Do(func() {
		r.notifier.Unsubscribe(r.handle)
		close(r.done)
	})
}

// ChannelProducer is an in-process Producer implementation backed by a Go
// channel, for testing.
type ChannelProducer struct {
	ch chan kafka.Message
}

// NewChannelProducer creates an in-process producer for testing.
func NewChannelProducer() *ChannelProducer {
	return &ChannelProducer{ch: make(chan kafka.Message, 100)}
}

// WriteMessages pushes messages onto the channel.
func (p *ChannelProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		select {
		case p.ch <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Messages returns the channel of produced messages.
func (p *ChannelProducer) Messages() <-chan kafka.Message { return p.ch }

// Close closes the channel.
func (p *ChannelProducer) Close() error {
	close(p.ch)
	return nil
}
