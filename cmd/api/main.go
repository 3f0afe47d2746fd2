package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/poimap/internal/adapters/http"
	"github.com/samirrijal/poimap/internal/adapters/memory"
	natsadapter "github.com/samirrijal/poimap/internal/adapters/nats"
	"github.com/samirrijal/poimap/internal/adapters/postgres"
	"github.com/samirrijal/poimap/internal/adapters/sources"
	"github.com/samirrijal/poimap/internal/adapters/surface"
	"github.com/samirrijal/poimap/internal/adapters/valkey"
	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/ports"
	"github.com/samirrijal/poimap/internal/core/usecases"
	"github.com/samirrijal/poimap/internal/pkg/config"
	"github.com/samirrijal/poimap/internal/pkg/errreport"
	"github.com/samirrijal/poimap/internal/pkg/logging"
	"github.com/samirrijal/poimap/internal/pkg/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("poimap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Error reporting
	reporter, err := errreport.New(errreport.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     version,
	})
	if err != nil {
		slog.Warn("sentry init failed", "error", err)
	}
	defer reporter.Flush(2 * time.Second)

	// Session store: Valkey when reachable, process memory otherwise
	var (
		sessions ports.CacheService
		pinger   http.Pinger
	)
	if cfg.Valkey.Addr != "" {
		vc, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, keeping viewer sessions in memory", "error", err)
		} else {
			defer vc.Close()
			sessions, pinger = vc, vc
		}
	}
	if sessions == nil {
		mc := memory.New()
		go func() {
			defer reporter.Recover("cache-purge")
			purgeExpired(ctx, mc, time.Minute)
		}()
		sessions = mc
	}

	// NATS: count/notice fan-out and the WebSocket relay
	var (
		nc        *nats.Conn
		observers []ports.CountObserver
		notifier  ports.Notifier
	)
	if cfg.NATS.URL != "" {
		nc, err = natsadapter.Connect(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer nc.Close()
			pub, err := natsadapter.NewPublisher(nc)
			if err != nil {
				slog.Warn("nats publisher unavailable", "error", err)
			} else {
				observers = append(observers, pub)
				notifier = pub
			}
		}
	}

	// Use cases
	catalog := usecases.NewCatalog()
	surf := surface.NewGeoJSON()
	viewerSvc := usecases.NewViewerService(catalog, valkey.NewViewerStore(sessions), surf, cfg.Viewers.TTLDuration(), observers...)
	go func() {
		defer reporter.Recover("viewer-sweeper")
		viewerSvc.RunSweeper(ctx, time.Minute)
	}()

	ingestOpts := []usecases.IngestionOption{
		usecases.WithCountObservers(observers...),
		usecases.WithNotifier(notifier),
		usecases.WithErrorReporter(reporter),
	}

	switch cfg.Ingest.Mode {
	case config.IngestWorkflow:
		if nc == nil {
			log.Fatalf("ingest mode %s needs NATS", cfg.Ingest.Mode)
		}
		ingestion := usecases.NewIngestionService(catalog, nil, ingestOpts...)
		sub, err := natsadapter.NewSubscriber(nc)
		if err != nil {
			log.Fatalf("dataset subscriber: %v", err)
		}
		defer sub.Close()
		err = sub.SubscribeDatasets(ctx, func(ctx context.Context, st domain.LayerStatus, ds domain.Dataset) error {
			if ingestion.Apply(ctx, st, ds) {
				slog.Info("dataset received", "category", st.Category, "state", st.State, "count", ds.Len())
			}
			return nil
		})
		if err != nil {
			log.Fatalf("subscribe datasets: %v", err)
		}
		slog.Info("waiting for datasets from the ingestion workflow")

	default:
		loaders, release, err := buildLoaders(ctx, cfg.Sources)
		if err != nil {
			log.Fatalf("loaders: %v", err)
		}
		ingestion := usecases.NewIngestionService(catalog, loaders, ingestOpts...)
		ingestion.Start(ctx)
		go func() {
			defer reporter.Recover("ingestion")
			defer release()
			ingestion.Wait()
		}()
	}

	deps := &http.Dependencies{
		Points:  usecases.NewPointService(catalog),
		Viewers: viewerSvc,
		Surface: surf,
		NATS:    nc,
		Cache:   pinger,
		Version: version,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "poimap API",
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			reporter.Capture(fmt.Errorf("panic: %v", e), map[string]any{"path": c.Path(), "method": c.Method()})
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "ETag, Location, Link",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		defer reporter.Recover("http-server")
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "ingest_mode", cfg.Ingest.Mode)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// buildLoaders opens the PostGIS pool when the attraction source needs it.
// release closes the pool once both loaders are done.
func buildLoaders(ctx context.Context, cfg config.SourcesConfig) ([]*usecases.Loader, func(), error) {
	release := func() {}

	var postgis ports.WKTSource
	if cfg.Attractions.Kind == config.AttractionsPostGIS {
		db, err := postgres.New(ctx, cfg.Attractions.DSN)
		if err != nil {
			slog.Warn("postgis unavailable", "error", err)
			postgis = sources.Unavailable[domain.WKTRecord]("postgis", err)
		} else {
			postgis = postgres.NewAttractionSource(db, cfg.Attractions.Query)
			release = db.Close
		}
	}

	loaders, err := sources.Loaders(cfg, postgis)
	if err != nil {
		release()
		return nil, nil, err
	}
	return loaders, release, nil
}

func purgeExpired(ctx context.Context, c *memory.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
