package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/poimap/internal/adapters/surface"
	"github.com/samirrijal/poimap/internal/core/usecases"
)

// Pinger is a backing service that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Points  *usecases.PointService
	Viewers *usecases.ViewerService
	Surface *surface.GeoJSON
	NATS    *nats.Conn
	Cache   Pinger
	Version string
}
