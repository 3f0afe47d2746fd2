package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/usecases"
)

func names(pts []domain.Point) []string {
	out := make([]string, 0, len(pts))
	for _, p := range pts {
		out = append(out, p.Name)
	}
	return out
}

func TestDisplayController_DefaultShowsEventsThenAttractions(t *testing.T) {
	catalog := seedCatalog(
		[]domain.Point{pt("Bushy Park", 51.4106, -0.3421), pt("Cardiff", 51.4948, -3.1933)},
		[]domain.Point{pt("Cedar Point", 41.48, -81.5)},
	)
	surface := &mockSurface{}
	d := usecases.NewDisplayController(context.Background(), "v1", catalog, domain.DefaultVisibility(), surface)
	defer d.Close()

	assert.Equal(t, []string{"Bushy Park", "Cardiff", "Cedar Point"}, names(d.VisibleMarkers()))
	assert.Len(t, surface.Last("v1"), 3)
}

func TestDisplayController_BothHiddenIsEmpty(t *testing.T) {
	catalog := seedCatalog([]domain.Point{pt("A", 1, 1)}, []domain.Point{pt("B", 2, 2)})
	surface := &mockSurface{}
	ctx := context.Background()
	d := usecases.NewDisplayController(ctx, "v1", catalog, domain.DefaultVisibility(), surface)
	defer d.Close()

	d.SetVisible(ctx, domain.CategoryRunningEvent, false)
	d.SetVisible(ctx, domain.CategoryAttraction, false)

	assert.Empty(t, d.VisibleMarkers())
	assert.Empty(t, surface.Last("v1"))
}

func TestDisplayController_DoubleToggleRestores(t *testing.T) {
	catalog := seedCatalog([]domain.Point{pt("A", 1, 1)}, []domain.Point{pt("B", 2, 2), pt("C", 3, 3)})
	ctx := context.Background()
	d := usecases.NewDisplayController(ctx, "v1", catalog, domain.DefaultVisibility(), nil)
	defer d.Close()

	for _, cat := range domain.Categories {
		before := names(d.VisibleMarkers())

		visible, _ := d.Toggle(ctx, cat)
		assert.False(t, visible)
		assert.NotEqual(t, before, names(d.VisibleMarkers()))

		visible, _ = d.Toggle(ctx, cat)
		assert.True(t, visible)
		assert.Equal(t, before, names(d.VisibleMarkers()))
	}
}

func TestDisplayController_OnlyAttractions(t *testing.T) {
	catalog := seedCatalog([]domain.Point{pt("A", 1, 1)}, []domain.Point{pt("B", 2, 2)})
	ctx := context.Background()
	d := usecases.NewDisplayController(ctx, "v1", catalog, domain.Visibility{Attractions: true}, nil)
	defer d.Close()

	assert.Equal(t, []string{"B"}, names(d.VisibleMarkers()))
}

func TestDisplayController_RecomputesOnDatasetReplace(t *testing.T) {
	catalog := usecases.NewCatalog()
	surface := &mockSurface{}
	obs := &mockObserver{}
	d := usecases.NewDisplayController(context.Background(), "v1", catalog, domain.DefaultVisibility(), surface, obs)
	defer d.Close()

	assert.Empty(t, surface.Last("v1"))

	catalog.Replace(domain.Dataset{Category: domain.CategoryAttraction, Points: tag([]domain.Point{pt("X Park", 10.5, -20.25)}, domain.CategoryAttraction)})

	require.Len(t, surface.Last("v1"), 1)
	assert.Equal(t, "X Park", surface.Last("v1")[0].Title)

	rec := obs.Recomputed()
	require.NotEmpty(t, rec)
	last := rec[len(rec)-1]
	assert.Equal(t, 1, last.Attractions)
	assert.Equal(t, 0, last.RunningEvents)
}

func TestDisplayController_CountsIgnoreVisibility(t *testing.T) {
	catalog := seedCatalog([]domain.Point{pt("A", 1, 1), pt("B", 1, 2)}, []domain.Point{pt("C", 2, 2)})
	ctx := context.Background()
	d := usecases.NewDisplayController(ctx, "v1", catalog, domain.DefaultVisibility(), nil)
	defer d.Close()

	counts := d.SetVisible(ctx, domain.CategoryRunningEvent, false)
	assert.Equal(t, 2, counts.RunningEvents)
	assert.Equal(t, 1, counts.Attractions)
	assert.False(t, counts.Visible.RunningEvents)
}

func TestDisplayController_CloseStopsFollowing(t *testing.T) {
	catalog := usecases.NewCatalog()
	surface := &mockSurface{}
	d := usecases.NewDisplayController(context.Background(), "v1", catalog, domain.DefaultVisibility(), surface)
	d.Close()

	catalog.Replace(domain.Dataset{Category: domain.CategoryAttraction, Points: []domain.Point{pt("X", 1, 1)}})
	assert.Empty(t, surface.Last("v1"))
}

func TestDisplayController_StaleRenderNeverLandsLast(t *testing.T) {
	catalog := seedCatalog([]domain.Point{pt("A", 1, 1)}, nil)
	surface := newGatedSurface(1)
	ctx := context.Background()
	d := usecases.NewDisplayController(ctx, "v1", catalog, domain.DefaultVisibility(), surface)
	defer d.Close()
	require.Len(t, surface.Last("v1"), 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		catalog.Replace(domain.Dataset{Category: domain.CategoryRunningEvent, Points: tag([]domain.Point{pt("A", 1, 1)}, domain.CategoryRunningEvent)})
	}()
	<-surface.entered

	go func() {
		defer wg.Done()
		d.SetVisible(ctx, domain.CategoryRunningEvent, false)
	}()
	require.Eventually(t, func() bool {
		return !d.Visibility().RunningEvents
	}, time.Second, time.Millisecond)

	close(surface.gate)
	wg.Wait()

	assert.Empty(t, d.VisibleMarkers())
	assert.Empty(t, surface.Last("v1"), "surface must match the current flags")
}

func TestMarkerFor_InfoPanels(t *testing.T) {
	ev := domain.Point{
		Name:     "Bushy Park",
		Category: domain.CategoryRunningEvent,
		Attributes: map[string]string{
			domain.AttrRegion:  "London",
			domain.AttrCountry: "UK",
			domain.AttrStatus:  "active",
		},
	}
	m := usecases.MarkerFor(ev)
	assert.Equal(t, "Bushy Park", m.Title)
	assert.Equal(t, []domain.Detail{
		{Label: "region", Value: "London"},
		{Label: "country", Value: "UK"},
		{Label: "status", Value: "active"},
	}, m.Details)

	park := domain.Point{
		Name:       "Cedar Point",
		Category:   domain.CategoryAttraction,
		Attributes: map[string]string{domain.AttrState: "Ohio"},
	}
	m = usecases.MarkerFor(park)
	assert.Equal(t, []domain.Detail{{Label: "state", Value: "Ohio"}}, m.Details)
}
