// Package errreport forwards ingestion failures and recovered panics to
// Sentry. Without a DSN every call is a no-op.
package errreport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds the Sentry client settings.
type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
}

// Reporter implements ports.ErrorReporter on a dedicated Sentry hub.
type Reporter struct {
	hub *sentry.Hub
}

// New creates a Reporter. An empty DSN yields a disabled reporter.
func New(cfg Config) (*Reporter, error) {
	return newReporter(cfg, nil)
}

func newReporter(cfg Config, beforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event) (*Reporter, error) {
	if cfg.DSN == "" {
		slog.Warn("sentry DSN not configured, error tracking disabled")
		return &Reporter{}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		TracesSampleRate: cfg.TracesSampleRate,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Request != nil && event.Request.Headers != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "Cookie")
			}
			if beforeSend != nil {
				return beforeSend(event, hint)
			}
			return event
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	slog.Info("sentry initialized", "environment", cfg.Environment, "release", cfg.Release)
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Enabled reports whether events are sent anywhere.
func (r *Reporter) Enabled() bool { return r != nil && r.hub != nil }

// Capture sends err with extra context attached as tags.
func (r *Reporter) Capture(err error, context map[string]any) {
	if err == nil || !r.Enabled() {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range context {
			scope.SetTag(k, fmt.Sprint(v))
		}
		r.hub.CaptureException(err)
	})
	slog.Debug("exception captured in sentry", "error", err)
}

// Recover captures a panic value tagged with task and re-panics. Defer it
// at the top of every long-running goroutine.
func (r *Reporter) Recover(task string) {
	if v := recover(); v != nil {
		err, ok := v.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", v)
		}
		slog.Error("goroutine panicked", "task", task, "error", err)
		r.Capture(err, map[string]any{"task": task})
		r.Flush(2 * time.Second)
		panic(v)
	}
}

// Flush waits for queued events.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}
