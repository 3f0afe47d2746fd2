package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/ports"
	"github.com/samirrijal/poimap/internal/pkg/metrics"
	"github.com/samirrijal/poimap/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/poimap/internal/core/usecases")

// Loader fetches and normalizes the dataset of one category.
type Loader struct {
	category domain.Category
	source   string
	fetch    func(ctx context.Context) (domain.Dataset, domain.DropReport, error)
	fallback *domain.Dataset
	once     sync.Once
}

// NewLoader pairs a record source with the extractor for its record shape.
func NewLoader[R any](category domain.Category, src ports.RecordSource[R], extract Extractor[R]) *Loader {
	return &Loader{
		category: category,
		source:   src.Name(),
		fetch: func(ctx context.Context) (domain.Dataset, domain.DropReport, error) {
			records, err := src.Fetch(ctx)
			if err != nil {
				return domain.Dataset{}, domain.DropReport{}, err
			}
			ds, report := NormalizeWithReport(records, category, extract)
			return ds, report, nil
		},
	}
}

// WithFallback sets the dataset substituted when the source fails.
func (l *Loader) WithFallback(ds domain.Dataset) *Loader {
	pts := make([]domain.Point, len(ds.Points))
	copy(pts, ds.Points)
	for i := range pts {
		pts[i].Category = l.category
	}
	l.fallback = &domain.Dataset{Category: l.category, Points: pts}
	return l
}

// Category returns the category this loader produces.
func (l *Loader) Category() domain.Category { return l.category }

// Source returns the source name.
func (l *Loader) Source() string { return l.source }

// Load fetches the source and returns the terminal status and dataset.
// A non-nil error is the source failure that sent the loader down the
// fallback path; the returned status and dataset are usable either way.
func (l *Loader) Load(ctx context.Context) (domain.LayerStatus, domain.Dataset, error) {
	ctx, span := tracer.Start(ctx, "ingest."+string(l.category))
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrCategory, string(l.category)),
		attribute.String(telemetry.AttrSource, l.source),
	)

	start := time.Now()
	ds, report, err := l.safeFetch(ctx)
	metrics.IngestDuration.WithLabelValues(string(l.category)).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.IngestFallbacks.WithLabelValues(string(l.category)).Inc()

		st, fb := l.fallbackResult()
		span.SetAttributes(attribute.Int(telemetry.AttrCount, st.Count), attribute.Bool(telemetry.AttrFallback, true))
		return st, fb, err
	}

	for reason, n := range report.Dropped {
		metrics.DroppedRecords.WithLabelValues(string(l.category), string(reason)).Add(float64(n))
	}
	ds.Category = l.category
	span.SetAttributes(attribute.Int(telemetry.AttrCount, ds.Len()))

	return domain.LayerStatus{
		Category:  l.category,
		State:     domain.StateReady,
		Count:     ds.Len(),
		Source:    l.source,
		Drops:     &report,
		UpdatedAt: time.Now(),
	}, ds, nil
}

func (l *Loader) safeFetch(ctx context.Context) (ds domain.Dataset, report domain.DropReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic while loading: %v", l.source, r)
		}
	}()
	return l.fetch(ctx)
}

func (l *Loader) fallbackResult() (domain.LayerStatus, domain.Dataset) {
	st := domain.LayerStatus{
		Category:  l.category,
		State:     domain.StateReadyWithFallback,
		UpdatedAt: time.Now(),
	}

	if l.fallback == nil {
		st.Source = "none"
		st.Notice = &domain.Notice{
			Category: l.category,
			Level:    domain.NoticeError,
			Message:  fmt.Sprintf("Could not load %s data.", label(l.category)),
		}
		return st, domain.Dataset{Category: l.category, Points: []domain.Point{}}
	}

	fb := domain.Dataset{Category: l.category, Points: append([]domain.Point(nil), l.fallback.Points...)}
	st.Source = "fallback"
	st.Count = fb.Len()
	st.Notice = &domain.Notice{
		Category: l.category,
		Level:    domain.NoticeWarning,
		Message:  fmt.Sprintf("Live %s feed is unavailable, showing built-in data.", label(l.category)),
	}
	return st, fb
}

func label(c domain.Category) string {
	switch c {
	case domain.CategoryRunningEvent:
		return "running event"
	case domain.CategoryAttraction:
		return "attraction"
	}
	return string(c)
}

// IngestionService runs every loader once and applies the results to the
// catalog. Loaders are independent: one failing never affects another.
type IngestionService struct {
	catalog   *Catalog
	loaders   []*Loader
	observers []ports.CountObserver
	notifier  ports.Notifier
	reporter  ports.ErrorReporter
	wg        sync.WaitGroup
}

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService)

// WithCountObservers adds observers notified on every terminal transition.
func WithCountObservers(obs ...ports.CountObserver) IngestionOption {
	return func(s *IngestionService) { s.observers = append(s.observers, obs...) }
}

// WithNotifier sets where fallback/failure notices go.
func WithNotifier(n ports.Notifier) IngestionOption {
	return func(s *IngestionService) { s.notifier = n }
}

// WithErrorReporter forwards source failures to an error tracker.
func WithErrorReporter(r ports.ErrorReporter) IngestionOption {
	return func(s *IngestionService) { s.reporter = r }
}

// NewIngestionService creates a new IngestionService.
func NewIngestionService(catalog *Catalog, loaders []*Loader, opts ...IngestionOption) *IngestionService {
	s := &IngestionService{catalog: catalog, loaders: loaders}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches each loader in its own goroutine and returns immediately.
// Calling Start again does not refetch anything.
func (s *IngestionService) Start(ctx context.Context) {
	for _, l := range s.loaders {
		s.wg.Add(1)
		go func(l *Loader) {
			defer s.wg.Done()
			s.runLoader(ctx, l)
		}(l)
	}
}

// Wait blocks until every started loader has finished.
func (s *IngestionService) Wait() {
	s.wg.Wait()
}

// Run starts every loader and waits for all of them.
func (s *IngestionService) Run(ctx context.Context) {
	s.Start(ctx)
	s.Wait()
}

func (s *IngestionService) runLoader(ctx context.Context, l *Loader) {
	l.once.Do(func() {
		s.catalog.setStatus(domain.LayerStatus{Category: l.category, State: domain.StateLoading, Source: l.source})

		st, ds, err := l.Load(ctx)
		if err != nil {
			slog.Warn("dataset source failed, using fallback",
				"category", l.category, "source", l.source, "error", err, "fallback_count", st.Count)
			if s.reporter != nil {
				s.reporter.Capture(err, map[string]any{"category": string(l.category), "source": l.source})
			}
		} else {
			slog.Info("dataset loaded",
				"category", l.category, "source", l.source, "count", st.Count, "dropped", st.Drops.DroppedCount())
		}

		s.Apply(ctx, st, ds)
	})
}

// Apply performs the side effects of a terminal transition: the dataset
// replaces the catalog slot, observers get one count notification and the
// notice (if any) is surfaced. A category that is already terminal is left
// untouched and Apply returns false.
func (s *IngestionService) Apply(ctx context.Context, st domain.LayerStatus, ds domain.Dataset) bool {
	if !st.State.Terminal() {
		return false
	}
	ds.Category = st.Category
	st.Count = ds.Len()

	if !s.catalog.setStatus(st) {
		slog.Debug("ignoring dataset for terminal category", "category", st.Category)
		return false
	}
	s.catalog.Replace(ds)

	metrics.LayerPoints.WithLabelValues(string(st.Category)).Set(float64(st.Count))
	metrics.IngestedPoints.WithLabelValues(string(st.Category), string(st.State)).Add(float64(st.Count))

	for _, obs := range s.observers {
		if err := obs.CountChanged(ctx, st.Category, st.Count); err != nil {
			slog.Warn("count notification failed", "category", st.Category, "error", err)
		}
	}
	if st.Notice != nil && s.notifier != nil {
		if err := s.notifier.Notify(ctx, *st.Notice); err != nil {
			slog.Warn("notice delivery failed", "category", st.Category, "error", err)
		}
	}
	return true
}
