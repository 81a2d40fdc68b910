package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher buffers lifecycle events on a channel and drains them to Kafka
// from a single worker goroutine, so Emit never blocks the mint/store path.
// Channel-and-worker split keeps background processing testable without
// wiring a broker.
type Publisher struct {
	client *kgo.Client
	topic  string
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher connects to the given seed brokers and ensures the topic
// exists. Returns nil if seeds is empty (event stream not configured); a nil
// *Publisher satisfies Emitter and drops events.
func NewPublisher(ctx context.Context, seeds []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(seeds) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{
		client: client,
		topic:  topic,
		inbox:  make(chan Event, 256),
		logger: logger,
	}, nil
}

// Emit queues an event for publication. Drops with a warning when the inbox
// is full; the event stream is advisory and must never apply backpressure to
// ledger mutations.
func (p *Publisher) Emit(event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("event inbox full, dropping event", "type", string(event.Type))
	}
}

// Run drains the inbox until ctx is cancelled, then flushes what the client
// has buffered.
func (p *Publisher) Run(ctx context.Context) error {
	if p == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := p.client.Flush(flushCtx); err != nil {
				p.logger.Warn("event flush on shutdown failed", "error", err.Error())
			}
			p.client.Close()
			return ctx.Err()
		case event := <-p.inbox:
			p.produce(ctx, event)
		}
	}
}

func (p *Publisher) produce(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal event", "error", err.Error())
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Owner),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("produce event failed",
				"type", string(event.Type),
				"error", err.Error(),
			)
		}
	})
}

// ensureTopic creates the topic if the cluster does not have it yet. Partition
// and replication choices are deployment defaults, not protocol requirements.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 3, 1, nil, topic)
	if err != nil {
		return err
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return resp.Err
	}
	return nil
}
