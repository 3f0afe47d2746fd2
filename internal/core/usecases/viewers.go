package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/ports"
	"github.com/samirrijal/poimap/internal/pkg/metrics"
)

// DefaultViewerTTL is how long an untouched viewer session survives.
const DefaultViewerTTL = 30 * time.Minute

type viewerEntry struct {
	ctrl     *DisplayController
	lastSeen time.Time
}

// ViewerService keeps one DisplayController per viewer session. Visibility
// flags are mirrored into the ViewerStore so any replica can rebuild a
// controller for a viewer it has not seen yet.
type ViewerService struct {
	catalog   *Catalog
	store     ports.ViewerStore
	surface   ports.MapSurface
	observers []ports.CountObserver
	ttl       time.Duration
	now       func() time.Time

	mu      sync.Mutex
	viewers map[string]*viewerEntry
}

// NewViewerService creates a new ViewerService. A zero ttl uses DefaultViewerTTL.
func NewViewerService(catalog *Catalog, store ports.ViewerStore, surface ports.MapSurface, ttl time.Duration, observers ...ports.CountObserver) *ViewerService {
	if ttl <= 0 {
		ttl = DefaultViewerTTL
	}
	return &ViewerService{
		catalog:   catalog,
		store:     store,
		surface:   surface,
		observers: observers,
		ttl:       ttl,
		now:       time.Now,
		viewers:   make(map[string]*viewerEntry),
	}
}

// Create opens a session with both layers visible.
func (s *ViewerService) Create(ctx context.Context) (*DisplayController, error) {
	id := uuid.NewString()
	vis := domain.DefaultVisibility()
	if err := s.save(ctx, id, vis); err != nil {
		return nil, err
	}
	return s.attach(ctx, id, vis), nil
}

// Get returns the controller of a session, rebuilding it from the store
// when this process has not seen the viewer.
func (s *ViewerService) Get(ctx context.Context, id string) (*DisplayController, error) {
	s.mu.Lock()
	if e, ok := s.viewers[id]; ok {
		e.lastSeen = s.now()
		s.mu.Unlock()
		return e.ctrl, nil
	}
	s.mu.Unlock()

	if s.store == nil {
		return nil, domain.ErrViewerNotFound
	}
	vis, ok, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading viewer %s: %w", id, err)
	}
	if !ok {
		return nil, domain.ErrViewerNotFound
	}
	return s.attach(ctx, id, vis), nil
}

// SetVisible sets one layer flag of a viewer.
func (s *ViewerService) SetVisible(ctx context.Context, id string, cat domain.Category, visible bool) (domain.Counts, error) {
	ctrl, err := s.Get(ctx, id)
	if err != nil {
		return domain.Counts{}, err
	}
	counts := ctrl.SetVisible(ctx, cat, visible)
	if err := s.save(ctx, id, counts.Visible); err != nil {
		return counts, err
	}
	return counts, nil
}

// Toggle flips one layer flag of a viewer and returns the new value.
func (s *ViewerService) Toggle(ctx context.Context, id string, cat domain.Category) (bool, domain.Counts, error) {
	ctrl, err := s.Get(ctx, id)
	if err != nil {
		return false, domain.Counts{}, err
	}
	visible, counts := ctrl.Toggle(ctx, cat)
	if err := s.save(ctx, id, counts.Visible); err != nil {
		return visible, counts, err
	}
	return visible, counts, nil
}

// Markers returns the rendered marker payloads of a viewer.
func (s *ViewerService) Markers(ctx context.Context, id string) ([]domain.Marker, error) {
	ctrl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ctrl.Markers(), nil
}

// Close ends a session.
func (s *ViewerService) Close(ctx context.Context, id string) error {
	s.detach(id)
	if s.store == nil {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting viewer %s: %w", id, err)
	}
	return nil
}

// Sweep detaches controllers idle for longer than the TTL. The store
// expires its own copy. Returns the number of sessions removed.
func (s *ViewerService) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var stale []*DisplayController
	for id, e := range s.viewers {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.ctrl)
			delete(s.viewers, id)
		}
	}
	metrics.ActiveViewers.Set(float64(len(s.viewers)))
	s.mu.Unlock()

	for _, c := range stale {
		c.Close()
		s.forget(c.ID())
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *ViewerService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("expired viewer sessions", "count", n)
			}
		}
	}
}

// Len returns the number of sessions held by this process.
func (s *ViewerService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

func (s *ViewerService) attach(ctx context.Context, id string, vis domain.Visibility) *DisplayController {
	s.mu.Lock()
	if e, ok := s.viewers[id]; ok {
		e.lastSeen = s.now()
		s.mu.Unlock()
		return e.ctrl
	}
	s.mu.Unlock()

	ctrl := NewDisplayController(ctx, id, s.catalog, vis, s.surface, s.observers...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.viewers[id]; ok {
		// lost a race with a concurrent attach
		ctrl.Close()
		e.lastSeen = s.now()
		return e.ctrl
	}
	s.viewers[id] = &viewerEntry{ctrl: ctrl, lastSeen: s.now()}
	metrics.ActiveViewers.Set(float64(len(s.viewers)))
	return ctrl
}

func (s *ViewerService) detach(id string) {
	s.mu.Lock()
	e, ok := s.viewers[id]
	delete(s.viewers, id)
	metrics.ActiveViewers.Set(float64(len(s.viewers)))
	s.mu.Unlock()
	if ok {
		e.ctrl.Close()
	}
	s.forget(id)
}

// forget releases whatever the surface keeps for a closed viewer.
func (s *ViewerService) forget(id string) {
	if f, ok := s.surface.(interface{ Forget(string) }); ok {
		f.Forget(id)
	}
}

func (s *ViewerService) save(ctx context.Context, id string, vis domain.Visibility) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, id, vis, s.ttl); err != nil {
		return fmt.Errorf("saving viewer %s: %w", id, err)
	}
	return nil
}
