package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/poimap/internal/adapters/nats"
	"github.com/samirrijal/poimap/internal/adapters/postgres"
	"github.com/samirrijal/poimap/internal/adapters/sources"
	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/ports"
	"github.com/samirrijal/poimap/internal/core/usecases"
	"github.com/samirrijal/poimap/internal/pkg/config"
	"github.com/samirrijal/poimap/internal/pkg/errreport"
	"github.com/samirrijal/poimap/internal/pkg/logging"
	"github.com/samirrijal/poimap/internal/pkg/telemetry"
	"github.com/samirrijal/poimap/internal/workflows"
)

var version = "dev"

// The ingestor hosts the ingestion activities, runs the workflow once and
// exits. Datasets reach the API replicas through JetStream.
func main() {
	cfg, err := config.Load("poimap-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	reporter, err := errreport.New(errreport.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     version,
	})
	if err != nil {
		slog.Warn("sentry init failed", "error", err)
	}
	defer reporter.Flush(2 * time.Second)
	defer reporter.Recover("ingestor")

	if cfg.NATS.URL == "" {
		log.Fatal("nats.url is required")
	}
	nc, err := natsadapter.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer nc.Close()

	pub, err := natsadapter.NewPublisher(nc)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}

	var postgis ports.WKTSource
	if cfg.Sources.Attractions.Kind == config.AttractionsPostGIS {
		db, err := postgres.New(ctx, cfg.Sources.Attractions.DSN)
		if err != nil {
			slog.Warn("postgis unavailable", "error", err)
			postgis = sources.Unavailable[domain.WKTRecord]("postgis", err)
		} else {
			defer db.Close()
			postgis = postgres.NewAttractionSource(db, cfg.Sources.Attractions.Query)
		}
	}

	loaders, err := sources.Loaders(cfg.Sources, postgis)
	if err != nil {
		log.Fatalf("loaders: %v", err)
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.IngestionWorkflow)
	w.RegisterActivity(workflows.NewIngestionActivities(loaders, pub, reporter))

	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.WorkflowID,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.IngestionWorkflow, workflows.IngestionInput{Categories: categoriesOf(loaders)})
	if err != nil {
		log.Fatalf("start workflow: %v", err)
	}
	slog.Info("ingestion workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var result workflows.IngestionResult
	if err := run.Get(ctx, &result); err != nil {
		log.Fatalf("ingestion workflow: %v", err)
	}
	for _, r := range result.Results {
		slog.Info("category ingested", "category", r.Category, "state", r.State, "count", r.Count, "source", r.Source)
	}
	if len(result.Failed) > 0 {
		slog.Error("datasets not published", "categories", result.Failed)
	}
}

func categoriesOf(loaders []*usecases.Loader) []domain.Category {
	out := make([]domain.Category, 0, len(loaders))
	for _, l := range loaders {
		out = append(out, l.Category())
	}
	return out
}
