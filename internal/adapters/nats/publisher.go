package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// Publisher implements ports.CountObserver, ports.Notifier and
// ports.DatasetPublisher. Counts and notices go out on core NATS; datasets
// go through JetStream so late subscribers still get the last one.
type Publisher struct {
	publish   func(subj string, data []byte) error
	jsPublish func(subj string, data []byte) error
	now       func() time.Time
}

// Connect opens a NATS connection that keeps retrying in the background.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("poimap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// EnsureStreams creates or updates the dataset stream.
func EnsureStreams(js nats.JetStreamContext) error {
	cfg := nats.StreamConfig{
		Name:              DatasetStream,
		Subjects:          []string{SubjectDatasets + ".>"},
		Retention:         nats.LimitsPolicy,
		MaxMsgsPerSubject: 1,
		MaxAge:            24 * time.Hour,
		Storage:           nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// NewPublisher publishes on conn and ensures the dataset stream exists.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := EnsureStreams(js); err != nil {
		return nil, err
	}
	return &Publisher{
		publish: conn.Publish,
		jsPublish: func(subj string, data []byte) error {
			_, err := js.Publish(subj, data)
			return err
		},
		now: time.Now,
	}, nil
}

// CountChanged publishes the new dataset size of a category.
func (p *Publisher) CountChanged(_ context.Context, cat domain.Category, count int) error {
	return p.send(p.publish, CountsSubject(cat), CountMessage{Category: cat, Count: count, At: p.now()})
}

// CountsRecomputed publishes a viewer's counts snapshot.
func (p *Publisher) CountsRecomputed(_ context.Context, viewerID string, counts domain.Counts) error {
	return p.send(p.publish, ViewerCountsSubject(viewerID), ViewerCountsMessage{ViewerID: viewerID, Counts: counts, At: p.now()})
}

// Notify publishes a notice for its category.
func (p *Publisher) Notify(_ context.Context, n domain.Notice) error {
	return p.send(p.publish, NoticesSubject(n.Category), n)
}

// PublishDataset publishes a finished dataset.
func (p *Publisher) PublishDataset(_ context.Context, st domain.LayerStatus, ds domain.Dataset) error {
	return p.send(p.jsPublish, DatasetsSubject(st.Category), DatasetMessage{Status: st, Dataset: ds})
}

func (p *Publisher) send(fn func(string, []byte) error, subj string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subj, err)
	}
	if err := fn(subj, data); err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	return nil
}
