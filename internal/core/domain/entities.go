package domain

import (
	"fmt"
	"time"
)

// Category identifies which dataset a point belongs to.
type Category string

const (
	CategoryRunningEvent Category = "running_event"
	CategoryAttraction   Category = "attraction"
)

// Categories lists every category in render order.
var Categories = []Category{CategoryRunningEvent, CategoryAttraction}

// ParseCategory accepts the canonical name plus the plural path forms used by the API.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "running_event", "running_events", "running-events", "events":
		return CategoryRunningEvent, nil
	case "attraction", "attractions", "parks":
		return CategoryAttraction, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Point is a normalized point of interest. Points are never mutated after
// normalization; a dataset is replaced wholesale instead.
type Point struct {
	ID         *int              `json:"id,omitempty"`
	Name       string            `json:"name"`
	Location   GeoPoint          `json:"location"`
	Category   Category          `json:"category"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Distance   *float64          `json:"distance,omitempty"` // computed field
}

// Attr returns an attribute value or "".
func (p Point) Attr(key string) string {
	if p.Attributes == nil {
		return ""
	}
	return p.Attributes[key]
}

// Dataset is an ordered sequence of points sharing one category.
type Dataset struct {
	Category Category `json:"category"`
	Points   []Point  `json:"points"`
}

// Len returns the number of points.
func (d Dataset) Len() int { return len(d.Points) }

// Candidate is the output of a field extractor, before invariant checks.
type Candidate struct {
	ID         *int
	Name       string
	Location   GeoPoint
	Attributes map[string]string
}

// DropReason explains why the normalizer discarded a record.
type DropReason string

const (
	DropExtractFailed DropReason = "extract_failed"
	DropEmptyName     DropReason = "empty_name"
	DropOutOfRange    DropReason = "out_of_range"
)

// DropReport counts discarded records per reason.
type DropReport struct {
	Total   int                `json:"total"`
	Kept    int                `json:"kept"`
	Dropped map[DropReason]int `json:"dropped,omitempty"`
}

// DroppedCount sums all drop reasons.
func (r DropReport) DroppedCount() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Visibility holds the per-viewer layer toggles.
type Visibility struct {
	RunningEvents bool `json:"running_events"`
	Attractions   bool `json:"attractions"`
}

// DefaultVisibility shows both layers.
func DefaultVisibility() Visibility {
	return Visibility{RunningEvents: true, Attractions: true}
}

// Of returns the flag for a category.
func (v Visibility) Of(c Category) bool {
	switch c {
	case CategoryRunningEvent:
		return v.RunningEvents
	case CategoryAttraction:
		return v.Attractions
	}
	return false
}

// With returns a copy with the flag for c set to visible.
func (v Visibility) With(c Category, visible bool) Visibility {
	switch c {
	case CategoryRunningEvent:
		v.RunningEvents = visible
	case CategoryAttraction:
		v.Attractions = visible
	}
	return v
}

// LoadState is the ingestion state of one dataset.
type LoadState string

const (
	StateIdle              LoadState = "idle"
	StateLoading           LoadState = "loading"
	StateReady             LoadState = "ready"
	StateReadyWithFallback LoadState = "ready_with_fallback"
)

// Terminal reports whether no further transition can happen.
func (s LoadState) Terminal() bool {
	return s == StateReady || s == StateReadyWithFallback
}

// LayerStatus is the ingestion outcome reported for one category.
type LayerStatus struct {
	Category  Category    `json:"category"`
	State     LoadState   `json:"state"`
	Count     int         `json:"count"`
	Source    string      `json:"source"`
	Notice    *Notice     `json:"notice,omitempty"`
	Drops     *DropReport `json:"drops,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NoticeLevel is the severity of a user notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is an advisory, non-blocking message shown to viewers.
type Notice struct {
	Category Category    `json:"category"`
	Level    NoticeLevel `json:"level"`
	Message  string      `json:"message"`
}

// Counts is the per-category snapshot emitted on every recompute.
type Counts struct {
	RunningEvents int        `json:"running_events"`
	Attractions   int        `json:"attractions"`
	Visible       Visibility `json:"visible"`
}

// Of returns the count for a category.
func (c Counts) Of(cat Category) int {
	switch cat {
	case CategoryRunningEvent:
		return c.RunningEvents
	case CategoryAttraction:
		return c.Attractions
	}
	return 0
}

// Detail is one labelled line of a marker info panel.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Marker is the render payload for one visible point.
type Marker struct {
	Category Category `json:"category"`
	Location GeoPoint `json:"location"`
	Title    string   `json:"title"`
	Details  []Detail `json:"details,omitempty"`
}
