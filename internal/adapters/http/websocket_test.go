package http

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSSubject(t *testing.T) {
	tests := []struct {
		name    string
		msg     wsMessage
		subject string
		problem string
	}{
		{"default channel is counts", wsMessage{}, "poimap.counts.>", ""},
		{"all counts", wsMessage{Channel: "counts"}, "poimap.counts.>", ""},
		{"counts for one category", wsMessage{Channel: "counts", Category: "running_event"}, "poimap.counts.running_event", ""},
		{"plural category alias", wsMessage{Channel: "counts", Category: "parks"}, "poimap.counts.attraction", ""},
		{"all notices", wsMessage{Channel: "notices"}, "poimap.notices.>", ""},
		{"notices for one category", wsMessage{Channel: "notices", Category: "attraction"}, "poimap.notices.attraction", ""},
		{"viewer counts", wsMessage{Channel: "viewer", Viewer: "abc-123"}, "poimap.viewers.abc-123.counts", ""},
		{"viewer id is sanitized", wsMessage{Channel: "viewer", Viewer: "a.b>c"}, "poimap.viewers.a_b_c.counts", ""},
		{"viewer channel needs an id", wsMessage{Channel: "viewer"}, "", "viewer is required"},
		{"unknown channel", wsMessage{Channel: "positions"}, "", "unknown channel: positions"},
		{"unknown category", wsMessage{Channel: "counts", Category: "museum"}, "", `unknown category: "museum"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, problem := wsSubject(tt.msg)
			assert.Equal(t, tt.subject, subject)
			assert.Equal(t, tt.problem, problem)
		})
	}
}

func TestSubjectMatches(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"poimap.counts.>", "poimap.counts.attraction", true},
		{"poimap.counts.>", "poimap.counts", false},
		{"poimap.counts.>", "poimap.notices.attraction", false},
		{"poimap.counts.>", "poimap.counts.>", true},
		{"poimap.*.attraction", "poimap.notices.attraction", true},
		{"poimap.counts.attraction", "poimap.counts.attraction", true},
		{"poimap.counts.attraction", "poimap.counts.>", false},
		{"poimap.counts.attraction", "poimap.counts.attraction.extra", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectMatches(tt.pattern, tt.subject))
		})
	}
}

// --- Mock subscription ---

type mockSub struct {
	subject       string
	unsubscribeFn func() error
	closed        bool
}

func (m *mockSub) Unsubscribe() error {
	m.closed = true
	if m.unsubscribeFn != nil {
		return m.unsubscribeFn()
	}
	return nil
}

type subRecorder struct {
	opened []*mockSub
	failOn string
}

func (r *subRecorder) subscribe(subject string) (unsubscriber, error) {
	if subject == r.failOn {
		return nil, errors.New("nats: connection closed")
	}
	s := &mockSub{subject: subject}
	r.opened = append(r.opened, s)
	return s, nil
}

func TestWSSubscriptions_CategoryUnderWildcardIsNotDuplicated(t *testing.T) {
	rec := &subRecorder{}
	subs := newWSSubscriptions(rec.subscribe)

	via, err := subs.Add("poimap.counts.>")
	require.NoError(t, err)
	assert.Equal(t, "poimap.counts.>", via)

	via, err = subs.Add("poimap.counts.running_event")
	require.NoError(t, err)
	assert.Equal(t, "poimap.counts.>", via)

	assert.Len(t, rec.opened, 1, "one NATS subscription means one delivery per event")
	assert.Equal(t, []string{"poimap.counts.>"}, subs.Subjects())
}

func TestWSSubscriptions_WildcardReplacesNarrower(t *testing.T) {
	rec := &subRecorder{}
	subs := newWSSubscriptions(rec.subscribe)

	_, err := subs.Add("poimap.notices.attraction")
	require.NoError(t, err)
	_, err = subs.Add("poimap.counts.attraction")
	require.NoError(t, err)

	_, err = subs.Add("poimap.notices.>")
	require.NoError(t, err)

	assert.True(t, rec.opened[0].closed)
	assert.False(t, rec.opened[1].closed)
	assert.Equal(t, []string{"poimap.counts.attraction", "poimap.notices.>"}, subs.Subjects())
}

func TestWSSubscriptions_NarrowAfterWildcardRemoved(t *testing.T) {
	rec := &subRecorder{}
	subs := newWSSubscriptions(rec.subscribe)

	_, err := subs.Add("poimap.counts.>")
	require.NoError(t, err)
	require.True(t, subs.Remove("poimap.counts.>"))
	assert.True(t, rec.opened[0].closed)

	via, err := subs.Add("poimap.counts.attraction")
	require.NoError(t, err)
	assert.Equal(t, "poimap.counts.attraction", via)
	assert.Len(t, rec.opened, 2)
}

func TestWSSubscriptions_RemoveUnknown(t *testing.T) {
	subs := newWSSubscriptions((&subRecorder{}).subscribe)
	assert.False(t, subs.Remove("poimap.counts.>"))
}

func TestWSSubscriptions_SubscribeError(t *testing.T) {
	rec := &subRecorder{failOn: "poimap.viewers.v1.counts"}
	subs := newWSSubscriptions(rec.subscribe)

	_, err := subs.Add("poimap.viewers.v1.counts")
	assert.Error(t, err)
	assert.Empty(t, subs.Subjects())
}

func TestWSSubscriptions_Close(t *testing.T) {
	rec := &subRecorder{}
	subs := newWSSubscriptions(rec.subscribe)

	for _, s := range []string{"poimap.counts.>", "poimap.notices.>", "poimap.viewers.v1.counts"} {
		_, err := subs.Add(s)
		require.NoError(t, err)
	}
	subs.Close()

	for _, s := range rec.opened {
		assert.True(t, s.closed, s.subject)
	}
	assert.Empty(t, subs.Subjects())
}
