package usecases

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/ports"
	"github.com/samirrijal/poimap/internal/pkg/metrics"
	"github.com/samirrijal/poimap/internal/pkg/telemetry"
)

// DisplayController owns the visibility flags of one viewer and renders the
// visible subset of the catalog onto the map surface.
type DisplayController struct {
	id        string
	catalog   *Catalog
	surface   ports.MapSurface
	observers []ports.CountObserver

	mu  sync.Mutex
	vis domain.Visibility

	// renderMu serializes recomputes so a render built from older flags
	// never lands after a newer one.
	renderMu sync.Mutex

	unsubscribe func()
}

// NewDisplayController creates a controller, renders once and starts
// following catalog changes.
func NewDisplayController(ctx context.Context, id string, catalog *Catalog, vis domain.Visibility, surface ports.MapSurface, observers ...ports.CountObserver) *DisplayController {
	d := &DisplayController{
		id:        id,
		catalog:   catalog,
		surface:   surface,
		observers: observers,
		vis:       vis,
	}
	d.unsubscribe = catalog.Subscribe(func(domain.Category) {
		d.Recompute(context.Background())
	})
	d.Recompute(ctx)
	return d
}

// ID returns the viewer ID.
func (d *DisplayController) ID() string { return d.id }

// Visibility returns the current flags.
func (d *DisplayController) Visibility() domain.Visibility {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vis
}

// SetVisible sets one flag and re-renders.
func (d *DisplayController) SetVisible(ctx context.Context, cat domain.Category, visible bool) domain.Counts {
	d.mu.Lock()
	d.vis = d.vis.With(cat, visible)
	d.mu.Unlock()
	return d.Recompute(ctx)
}

// Toggle flips one flag, re-renders and returns the new value.
func (d *DisplayController) Toggle(ctx context.Context, cat domain.Category) (bool, domain.Counts) {
	d.mu.Lock()
	next := !d.vis.Of(cat)
	d.vis = d.vis.With(cat, next)
	d.mu.Unlock()
	return next, d.Recompute(ctx)
}

// VisibleMarkers returns running events (when visible) followed by
// attractions (when visible), each in dataset order.
func (d *DisplayController) VisibleMarkers() []domain.Point {
	vis := d.Visibility()
	out := []domain.Point{}
	for _, cat := range domain.Categories {
		if vis.Of(cat) {
			out = append(out, d.catalog.Dataset(cat).Points...)
		}
	}
	return out
}

// Counts returns the per-category dataset sizes and current flags.
func (d *DisplayController) Counts() domain.Counts {
	return domain.Counts{
		RunningEvents: d.catalog.Dataset(domain.CategoryRunningEvent).Len(),
		Attractions:   d.catalog.Dataset(domain.CategoryAttraction).Len(),
		Visible:       d.Visibility(),
	}
}

// Markers returns the render payload of the visible points.
func (d *DisplayController) Markers() []domain.Marker {
	pts := d.VisibleMarkers()
	out := make([]domain.Marker, 0, len(pts))
	for _, p := range pts {
		out = append(out, MarkerFor(p))
	}
	return out
}

// Recompute replaces the rendered marker set and emits the counts.
func (d *DisplayController) Recompute(ctx context.Context) domain.Counts {
	d.renderMu.Lock()
	defer d.renderMu.Unlock()

	ctx, span := tracer.Start(ctx, "display.recompute")
	defer span.End()

	markers := d.Markers()
	span.SetAttributes(attribute.String(telemetry.AttrViewer, d.id), attribute.Int(telemetry.AttrCount, len(markers)))
	if d.surface != nil {
		if err := d.surface.Render(ctx, d.id, markers); err != nil {
			slog.Warn("render failed", "viewer", d.id, "error", err)
		}
	}
	metrics.MarkersRendered.Observe(float64(len(markers)))

	counts := d.Counts()
	for _, obs := range d.observers {
		if err := obs.CountsRecomputed(ctx, d.id, counts); err != nil {
			slog.Warn("counts emission failed", "viewer", d.id, "error", err)
		}
	}
	return counts
}

// Close stops following catalog changes.
func (d *DisplayController) Close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
}

// MarkerFor builds the info panel for a point. Running events show region,
// country and status; attractions show state and country.
func MarkerFor(p domain.Point) domain.Marker {
	m := domain.Marker{Category: p.Category, Location: p.Location, Title: p.Name}

	var keys []string
	switch p.Category {
	case domain.CategoryRunningEvent:
		keys = []string{domain.AttrRegion, domain.AttrCountry, domain.AttrStatus}
	case domain.CategoryAttraction:
		keys = []string{domain.AttrState, domain.AttrCountry, domain.AttrDescription}
	}
	for _, k := range keys {
		if v := p.Attr(k); v != "" {
			m.Details = append(m.Details, domain.Detail{Label: k, Value: v})
		}
	}
	return m
}
