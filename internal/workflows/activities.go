package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/ports"
	"github.com/samirrijal/poimap/internal/core/usecases"
)

// LoadResult is what an ingestion activity reports back to the workflow.
type LoadResult struct {
	Category domain.Category `json:"category"`
	State    domain.LoadState `json:"state"`
	Count    int              `json:"count"`
	Source   string           `json:"source"`
	Error    string           `json:"error,omitempty"`
}

// IngestionActivities holds one loader per category and the publisher the
// finished datasets are handed to.
type IngestionActivities struct {
	Loaders   map[domain.Category]*usecases.Loader
	Publisher ports.DatasetPublisher
	Reporter  ports.ErrorReporter
}

// NewIngestionActivities indexes loaders by category.
func NewIngestionActivities(loaders []*usecases.Loader, pub ports.DatasetPublisher, reporter ports.ErrorReporter) *IngestionActivities {
	m := make(map[domain.Category]*usecases.Loader, len(loaders))
	for _, l := range loaders {
		m[l.Category()] = l
	}
	return &IngestionActivities{Loaders: m, Publisher: pub, Reporter: reporter}
}

// LoadCategory fetches and normalizes one dataset, then publishes it. A
// source failure is not an activity failure: the fallback dataset is
// published instead. Only a publish failure fails the activity.
func (a *IngestionActivities) LoadCategory(ctx context.Context, category domain.Category) (LoadResult, error) {
	logger := activity.GetLogger(ctx)

	l, ok := a.Loaders[category]
	if !ok {
		return LoadResult{}, fmt.Errorf("no loader for %q", category)
	}

	st, ds, loadErr := l.Load(ctx)
	res := LoadResult{Category: category, State: st.State, Count: st.Count, Source: st.Source}
	if loadErr != nil {
		res.Error = loadErr.Error()
		logger.Warn("dataset source failed, publishing fallback", "category", category, "error", loadErr)
		if a.Reporter != nil {
			a.Reporter.Capture(loadErr, map[string]any{"category": string(category), "source": l.Source()})
		}
	}

	if err := a.Publisher.PublishDataset(ctx, st, ds); err != nil {
		return res, fmt.Errorf("publish %s dataset: %w", category, err)
	}
	logger.Info("dataset published", "category", category, "state", st.State, "count", st.Count)
	return res, nil
}
