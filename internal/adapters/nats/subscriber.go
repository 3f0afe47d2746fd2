package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// DatasetHandler applies a dataset received from another process.
type DatasetHandler func(ctx context.Context, status domain.LayerStatus, ds domain.Dataset) error

// Subscriber implements ports.DatasetSubscriber using NATS JetStream.
type Subscriber struct {
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber on a shared connection.
func NewSubscriber(conn *nats.Conn) (*Subscriber, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := EnsureStreams(js); err != nil {
		return nil, err
	}
	return &Subscriber{js: js}, nil
}

// SubscribeDatasets delivers the last dataset of every category, then each
// new one. The consumer is ephemeral: every API replica sees every dataset.
func (s *Subscriber) SubscribeDatasets(ctx context.Context, handler func(ctx context.Context, status domain.LayerStatus, ds domain.Dataset) error) error {
	sub, err := s.js.Subscribe(SubjectDatasets+".>", func(msg *nats.Msg) {
		if err := HandleDatasetMessage(ctx, msg.Data, handler); err != nil {
			slog.Warn("dataset message rejected", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverLastPerSubject(),
		nats.ManualAck(),
		nats.MaxDeliver(1),
	)
	if err != nil {
		return fmt.Errorf("subscribe datasets: %w", err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// HandleDatasetMessage decodes a dataset message and passes it to handler.
func HandleDatasetMessage(ctx context.Context, data []byte, handler DatasetHandler) error {
	var m DatasetMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode dataset: %w", err)
	}
	if m.Status.Category == "" {
		return fmt.Errorf("decode dataset: missing category")
	}
	m.Dataset.Category = m.Status.Category
	return handler(ctx, m.Status, m.Dataset)
}

// Close unsubscribes.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}
