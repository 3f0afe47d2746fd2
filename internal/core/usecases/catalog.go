package usecases

import (
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/pkg/geospatial"
)

// Catalog holds the current dataset and ingestion status of each category.
// Each category slot is written only by its own loader.
type Catalog struct {
	mu        sync.RWMutex
	datasets  map[domain.Category]domain.Dataset
	statuses  map[domain.Category]domain.LayerStatus
	listeners map[int]func(domain.Category)
	nextID    int
}

// NewCatalog creates a catalog with empty datasets in the idle state.
func NewCatalog() *Catalog {
	c := &Catalog{
		datasets:  make(map[domain.Category]domain.Dataset, len(domain.Categories)),
		statuses:  make(map[domain.Category]domain.LayerStatus, len(domain.Categories)),
		listeners: make(map[int]func(domain.Category)),
	}
	for _, cat := range domain.Categories {
		c.datasets[cat] = domain.Dataset{Category: cat, Points: []domain.Point{}}
		c.statuses[cat] = domain.LayerStatus{Category: cat, State: domain.StateIdle}
	}
	return c
}

// Dataset returns the current dataset of a category.
func (c *Catalog) Dataset(cat domain.Category) domain.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.datasets[cat]
}

// Replace swaps in a new dataset for its category and notifies listeners.
func (c *Catalog) Replace(ds domain.Dataset) {
	if ds.Points == nil {
		ds.Points = []domain.Point{}
	}

	c.mu.Lock()
	c.datasets[ds.Category] = ds
	listeners := make([]func(domain.Category), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ds.Category)
	}
}

// Status returns the ingestion status of a category.
func (c *Catalog) Status(cat domain.Category) domain.LayerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statuses[cat]
}

// Statuses returns every category status in render order.
func (c *Catalog) Statuses() []domain.LayerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.LayerStatus, 0, len(domain.Categories))
	for _, cat := range domain.Categories {
		out = append(out, c.statuses[cat])
	}
	return out
}

// setStatus records a status; it is a no-op once the category is terminal.
// It reports whether the status was stored.
func (c *Catalog) setStatus(st domain.LayerStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statuses[st.Category].State.Terminal() {
		return false
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	c.statuses[st.Category] = st
	return true
}

// Subscribe registers fn to be called after every Replace. The returned
// function removes the listener.
func (c *Catalog) Subscribe(fn func(domain.Category)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Nearby returns points of the given categories within radiusMeters of
// center, closest first.
func (c *Catalog) Nearby(center domain.GeoPoint, radiusMeters float64, limit int, cats ...domain.Category) []domain.Point {
	if len(cats) == 0 {
		cats = domain.Categories
	}
	box := geospatial.BoundingBox(center, radiusMeters)

	c.mu.RLock()
	var out []domain.Point
	for _, cat := range cats {
		for _, p := range c.datasets[cat].Points {
			if !box.Contains(p.Location) {
				continue
			}
			d := geospatial.Haversine(center, p.Location)
			if d > radiusMeters {
				continue
			}
			p.Distance = &d
			out = append(out, p)
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
