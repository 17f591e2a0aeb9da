// Package audit ships dispatch events to Kafka as a durable audit trail.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"dingd/internal/events"
)

var droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "dingd",
	Subsystem: "audit",
	Name:      "dropped_events_total",
	Help:      "Dispatch events dropped because the audit buffer was full or the write failed",
})

func init() {
	prometheus.MustRegister(droppedTotal)
}

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures a Publisher.
type Config struct {
	Brokers []string
	Topic   string
	// Buffer is the number of events held while the writer is busy.
	Buffer       int
	BatchSize    int
	WriteTimeout time.Duration
	Logger       *zerolog.Logger
	// Writer overrides the Kafka writer built from Brokers and Topic.
	Writer MessageWriter
}

// Publisher is an events.Publisher that never blocks the dispatch path: when
// the buffer is full events are dropped and counted.
type Publisher struct {
	writer  MessageWriter
	queue   chan events.Event
	batch   int
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex // guards closed against in-progress publishes
	closed bool
	done   chan struct{}
}

// New starts a Publisher and its background writer loop.
func New(cfg Config) *Publisher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	w := cfg.Writer
	if w == nil {
		w = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	p := &Publisher{
		writer:  w,
		queue:   make(chan events.Event, cfg.Buffer),
		batch:   cfg.BatchSize,
		timeout: cfg.WriteTimeout,
		log:     zerolog.Nop(),
		done:    make(chan struct{}),
	}
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("component", "audit").Logger()
	}
	go p.loop()
	return p
}

// Publish enqueues e. It never blocks; events published after Close are
// dropped.
func (p *Publisher) Publish(e events.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		droppedTotal.Inc()
		return
	}
	select {
	case p.queue <- e:
	default:
		droppedTotal.Inc()
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	buf := make([]kafka.Message, 0, p.batch)
	for e := range p.queue {
		buf = append(buf, encode(e))
		// Drain whatever is already queued into the same batch.
	drain:
		for len(buf) < p.batch {
			select {
			case next, ok := <-p.queue:
				if !ok {
					break drain
				}
				buf = append(buf, encode(next))
			default:
				break drain
			}
		}
		p.flush(buf)
		buf = buf[:0]
	}
}

func (p *Publisher) flush(msgs []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		droppedTotal.Add(float64(len(msgs)))
		p.log.Error().Err(err).Int("events", len(msgs)).Msg("audit write failed")
	}
}

// encode keys messages by dispatch ID so one dispatch lands on one partition.
func encode(e events.Event) kafka.Message {
	b, err := json.Marshal(e)
	if err != nil {
		// Fields holding unmarshalable values; keep the envelope.
		e.Fields = map[string]any{"encode_error": err.Error()}
		b, _ = json.Marshal(e)
	}
	return kafka.Message{
		Key:   []byte(e.DispatchID),
		Value: b,
		Time:  e.Time,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.Name)},
		},
	}
}

// Close flushes buffered events and closes the writer.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.writer.Close()
}
