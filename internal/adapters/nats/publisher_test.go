package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/poimap/internal/core/domain"
)

type sent struct {
	subject string
	data    []byte
}

func testPublisher() (*Publisher, *[]sent, *[]sent) {
	var core, js []sent
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Publisher{
		publish:   func(s string, d []byte) error { core = append(core, sent{s, d}); return nil },
		jsPublish: func(s string, d []byte) error { js = append(js, sent{s, d}); return nil },
		now:       func() time.Time { return at },
	}, &core, &js
}

func TestPublisher_CountChanged(t *testing.T) {
	p, core, _ := testPublisher()
	require.NoError(t, p.CountChanged(context.Background(), domain.CategoryRunningEvent, 5))

	require.Len(t, *core, 1)
	assert.Equal(t, "poimap.counts.running_event", (*core)[0].subject)

	var m CountMessage
	require.NoError(t, json.Unmarshal((*core)[0].data, &m))
	assert.Equal(t, 5, m.Count)
	assert.Equal(t, domain.CategoryRunningEvent, m.Category)
}

func TestPublisher_NotifyAndViewerCounts(t *testing.T) {
	p, core, _ := testPublisher()
	ctx := context.Background()

	require.NoError(t, p.Notify(ctx, domain.Notice{Category: domain.CategoryAttraction, Level: domain.NoticeError, Message: "x"}))
	require.NoError(t, p.CountsRecomputed(ctx, "a.b", domain.Counts{Attractions: 3}))

	require.Len(t, *core, 2)
	assert.Equal(t, "poimap.notices.attraction", (*core)[0].subject)
	assert.Equal(t, "poimap.viewers.a_b.counts", (*core)[1].subject)
}

func TestPublisher_DatasetRoundTrip(t *testing.T) {
	p, core, js := testPublisher()
	st := domain.LayerStatus{Category: domain.CategoryAttraction, State: domain.StateReady, Count: 1}
	ds := domain.Dataset{Category: domain.CategoryAttraction, Points: []domain.Point{{Name: "X Park", Location: domain.GeoPoint{Lat: 10.5, Lon: -20.25}, Category: domain.CategoryAttraction}}}

	require.NoError(t, p.PublishDataset(context.Background(), st, ds))
	assert.Empty(t, *core)
	require.Len(t, *js, 1)
	assert.Equal(t, "poimap.datasets.attraction", (*js)[0].subject)

	var got domain.Dataset
	err := HandleDatasetMessage(context.Background(), (*js)[0].data, func(ctx context.Context, s domain.LayerStatus, d domain.Dataset) error {
		assert.Equal(t, domain.StateReady, s.State)
		got = d
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ds, got)
}

func TestPublisher_PublishError(t *testing.T) {
	boom := errors.New("no responders")
	p := &Publisher{publish: func(string, []byte) error { return boom }, now: time.Now}
	assert.ErrorIs(t, p.CountChanged(context.Background(), domain.CategoryAttraction, 1), boom)
}

func TestHandleDatasetMessage_Invalid(t *testing.T) {
	noop := func(context.Context, domain.LayerStatus, domain.Dataset) error { return nil }
	assert.Error(t, HandleDatasetMessage(context.Background(), []byte(`not json`), noop))
	assert.Error(t, HandleDatasetMessage(context.Background(), []byte(`{"status":{}}`), noop))
}
