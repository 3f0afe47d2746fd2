package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// WorkflowID is fixed so a second ingestor start joins the running execution.
const WorkflowID = "poimap-ingestion"

// IngestionInput selects the categories to load; empty means all.
type IngestionInput struct {
	Categories []domain.Category
}

// IngestionResult lists the outcome per category in input order.
type IngestionResult struct {
	Results []LoadResult
	Failed  []domain.Category
}

// IngestionWorkflow runs every category loader as its own activity, in
// parallel. Activities are never retried: a failed load has already fallen
// back, and a failed publish is reported in Failed.
func IngestionWorkflow(ctx workflow.Context, input IngestionInput) (IngestionResult, error) {
	logger := workflow.GetLogger(ctx)

	cats := input.Categories
	if len(cats) == 0 {
		cats = domain.Categories
	}
	logger.Info("Starting ingestion workflow", "categories", len(cats))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	futures := make([]workflow.Future, len(cats))
	for i, c := range cats {
		futures[i] = workflow.ExecuteActivity(ctx, "LoadCategory", c)
	}

	var out IngestionResult
	for i, f := range futures {
		var res LoadResult
		if err := f.Get(ctx, &res); err != nil {
			logger.Warn("ingestion activity failed", "category", cats[i], "error", err)
			out.Failed = append(out.Failed, cats[i])
			continue
		}
		out.Results = append(out.Results, res)
	}

	logger.Info("Ingestion workflow finished", "loaded", len(out.Results), "failed", len(out.Failed))
	return out, nil
}
