package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/usecases"
	"github.com/samirrijal/poimap/internal/pkg/geospatial"
)

// --- Mock RecordSource ---

type mockSource[R any] struct {
	name    string
	fetchFn func(ctx context.Context) ([]R, error)
	calls   int
	mu      sync.Mutex
}

func (m *mockSource[R]) Name() string { return m.name }

func (m *mockSource[R]) Fetch(ctx context.Context) ([]R, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return nil, nil
}

func (m *mockSource[R]) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock CountObserver ---

type countEvent struct {
	Category domain.Category
	Count    int
}

type mockObserver struct {
	mu         sync.Mutex
	changed    []countEvent
	recomputed []domain.Counts
}

func (m *mockObserver) CountChanged(ctx context.Context, cat domain.Category, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, countEvent{Category: cat, Count: n})
	return nil
}

func (m *mockObserver) CountsRecomputed(ctx context.Context, viewerID string, counts domain.Counts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recomputed = append(m.recomputed, counts)
	return nil
}

func (m *mockObserver) Changed() []countEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]countEvent(nil), m.changed...)
}

func (m *mockObserver) Recomputed() []domain.Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Counts(nil), m.recomputed...)
}

// --- Mock Notifier ---

type mockNotifier struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (m *mockNotifier) Notify(ctx context.Context, n domain.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
	return nil
}

func (m *mockNotifier) Notices() []domain.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notice(nil), m.notices...)
}

// --- Mock MapSurface ---

type mockSurface struct {
	mu      sync.Mutex
	renders map[string][][]domain.Marker
}

func (m *mockSurface) Render(ctx context.Context, viewerID string, markers []domain.Marker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renders == nil {
		m.renders = make(map[string][][]domain.Marker)
	}
	m.renders[viewerID] = append(m.renders[viewerID], markers)
	return nil
}

func (m *mockSurface) Last(viewerID string) []domain.Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.renders[viewerID]
	if len(r) == 0 {
		return nil
	}
	return r[len(r)-1]
}

// --- Gated MapSurface ---

// gatedSurface blocks the render with index blockAt until gate is closed.
// entered is closed once that render has started.
type gatedSurface struct {
	mockSurface
	blockAt int
	gate    chan struct{}
	entered chan struct{}

	callsMu sync.Mutex
	calls   int
}

func newGatedSurface(blockAt int) *gatedSurface {
	return &gatedSurface{blockAt: blockAt, gate: make(chan struct{}), entered: make(chan struct{})}
}

func (g *gatedSurface) Render(ctx context.Context, viewerID string, markers []domain.Marker) error {
	g.callsMu.Lock()
	n := g.calls
	g.calls++
	g.callsMu.Unlock()

	if n == g.blockAt {
		close(g.entered)
		<-g.gate
	}
	return g.mockSurface.Render(ctx, viewerID, markers)
}

// --- Mock ViewerStore ---

type mockViewerStore struct {
	loadFn   func(ctx context.Context, id string) (domain.Visibility, bool, error)
	saveFn   func(ctx context.Context, id string, vis domain.Visibility, ttl time.Duration) error
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockViewerStore) Load(ctx context.Context, id string) (domain.Visibility, bool, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, id)
	}
	return domain.Visibility{}, false, nil
}

func (m *mockViewerStore) Save(ctx context.Context, id string, vis domain.Visibility, ttl time.Duration) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, id, vis, ttl)
	}
	return nil
}

func (m *mockViewerStore) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock ErrorReporter ---

type mockReporter struct {
	mu   sync.Mutex
	errs []error
}

func (m *mockReporter) Capture(err error, _ map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

func (m *mockReporter) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errs)
}

// --- Fixtures ---

func ukFallback() domain.Dataset {
	mk := func(name string, lat, lon float64) domain.Point {
		return domain.Point{Name: name, Location: domain.GeoPoint{Lat: lat, Lon: lon}, Attributes: map[string]string{domain.AttrCountry: "UK"}}
	}
	return domain.Dataset{Points: []domain.Point{
		mk("Bushy Park", 51.4106, -0.3421),
		mk("Newark", 53.0697, -0.8195),
		mk("Cardiff", 51.4948, -3.1933),
		mk("Woodhouse Moor", 53.8123, -1.5658),
		mk("Cramond", 55.9802, -3.2925),
	}}
}

func seedCatalog(events, attractions []domain.Point) *usecases.Catalog {
	c := usecases.NewCatalog()
	c.Replace(domain.Dataset{Category: domain.CategoryRunningEvent, Points: tag(events, domain.CategoryRunningEvent)})
	c.Replace(domain.Dataset{Category: domain.CategoryAttraction, Points: tag(attractions, domain.CategoryAttraction)})
	return c
}

func tag(pts []domain.Point, cat domain.Category) []domain.Point {
	out := make([]domain.Point, len(pts))
	for i, p := range pts {
		p.Category = cat
		out[i] = p
	}
	return out
}

func pt(name string, lat, lon float64) domain.Point {
	return domain.Point{Name: name, Location: domain.GeoPoint{Lat: lat, Lon: lon}}
}

func defaultAliases() geospatial.ColumnAliases {
	return geospatial.DefaultAttractionAliases
}
