package http

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/poimap/internal/adapters/nats"
	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action   string `json:"action"`   // "subscribe" | "unsubscribe"
	Channel  string `json:"channel"`  // "counts" | "notices" | "viewer"
	Category string `json:"category"` // optional category filter for counts/notices
	Viewer   string `json:"viewer"`   // viewer id, required for the viewer channel
}

// wsEvent wraps a relayed NATS message.
type wsEvent struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

// wsSubject maps a client request to the NATS subject it listens on.
func wsSubject(m wsMessage) (string, string) {
	var cat domain.Category
	if m.Category != "" {
		c, err := domain.ParseCategory(m.Category)
		if err != nil {
			return "", err.Error()
		}
		cat = c
	}

	switch m.Channel {
	case "", "counts":
		if cat != "" {
			return natsadapter.CountsSubject(cat), ""
		}
		return natsadapter.SubjectCounts + ".>", ""
	case "notices":
		if cat != "" {
			return natsadapter.NoticesSubject(cat), ""
		}
		return natsadapter.SubjectNotices + ".>", ""
	case "viewer":
		if m.Viewer == "" {
			return "", "viewer is required"
		}
		return natsadapter.ViewerCountsSubject(m.Viewer), ""
	}
	return "", "unknown channel: " + m.Channel
}

// unsubscriber is the part of *nats.Subscription the relay needs.
type unsubscriber interface {
	Unsubscribe() error
}

// wsSubscriptions tracks one client's NATS subscriptions. A subject already
// matched by an active wildcard gets no second subscription, so every event
// reaches the client once.
type wsSubscriptions struct {
	subscribe func(subject string) (unsubscriber, error)
	subs      map[string]unsubscriber
}

func newWSSubscriptions(subscribe func(subject string) (unsubscriber, error)) *wsSubscriptions {
	return &wsSubscriptions{subscribe: subscribe, subs: make(map[string]unsubscriber)}
}

// Add subscribes to subject unless an active subscription already matches
// it, in which case it returns the matching subject as via. Adding a
// wildcard drops the narrower subscriptions it now covers.
func (w *wsSubscriptions) Add(subject string) (via string, err error) {
	for active := range w.subs {
		if subjectMatches(active, subject) {
			return active, nil
		}
	}

	s, err := w.subscribe(subject)
	if err != nil {
		return "", err
	}
	for active, sub := range w.subs {
		if subjectMatches(subject, active) {
			_ = sub.Unsubscribe()
			delete(w.subs, active)
		}
	}
	w.subs[subject] = s
	return subject, nil
}

// Remove drops an exact subscription and reports whether it existed.
func (w *wsSubscriptions) Remove(subject string) bool {
	s, ok := w.subs[subject]
	if !ok {
		return false
	}
	_ = s.Unsubscribe()
	delete(w.subs, subject)
	return true
}

// Subjects returns the active subjects, sorted.
func (w *wsSubscriptions) Subjects() []string {
	out := make([]string, 0, len(w.subs))
	for s := range w.subs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Close drops every subscription.
func (w *wsSubscriptions) Close() {
	for subject, s := range w.subs {
		_ = s.Unsubscribe()
		delete(w.subs, subject)
	}
}

// subjectMatches reports whether pattern (which may hold * and > tokens)
// matches every message published on subject.
func subjectMatches(pattern, subject string) bool {
	p := strings.Split(pattern, ".")
	s := strings.Split(subject, ".")
	for i, tok := range p {
		if tok == ">" {
			return len(s) > i
		}
		if i >= len(s) {
			return false
		}
		if tok != "*" && tok != s[i] {
			return false
		}
	}
	return len(p) == len(s)
}

// WebSocketHandler returns a handler that relays count and notice events
// from NATS to connected browsers. Every client starts subscribed to all
// counts and notices, plus its own viewer counts when ?viewer= is given.
// A category subscription made while the wildcard is active is reported
// with "via" set to the wildcard and adds no second delivery.
// Clients send JSON: {"action":"subscribe","channel":"viewer","viewer":"<id>"}
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := slog.Default().With("remote_addr", c.RemoteAddr().String())

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "live updates are not available"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Debug("ws client connected")

		relay := func(msg *nats.Msg) {
			_ = writeJSON(wsEvent{Subject: msg.Subject, Data: json.RawMessage(msg.Data)})
		}

		subs := newWSSubscriptions(func(subject string) (unsubscriber, error) {
			return nc.Subscribe(subject, relay)
		})
		defer subs.Close()

		defaults := []string{natsadapter.SubjectCounts + ".>", natsadapter.SubjectNotices + ".>"}
		if viewer := c.Query("viewer"); viewer != "" {
			defaults = append(defaults, natsadapter.ViewerCountsSubject(viewer))
		}
		for _, subject := range defaults {
			if _, err := subs.Add(subject); err != nil {
				logger.Warn("ws default subscribe failed", "subject", subject, "error", err)
				return
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, problem := wsSubject(m)
			if problem != "" {
				_ = writeJSON(map[string]string{"error": problem})
				continue
			}

			switch m.Action {
			case "subscribe":
				via, err := subs.Add(subject)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject, "via": via})

			case "unsubscribe":
				if subs.Remove(subject) {
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		logger.Debug("ws client disconnected")
	}
}
