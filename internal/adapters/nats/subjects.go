package natsadapter

import (
	"strings"
	"time"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// Subject roots. Category and viewer IDs are appended as the last token.
const (
	SubjectCounts   = "poimap.counts"
	SubjectNotices  = "poimap.notices"
	SubjectDatasets = "poimap.datasets"
	SubjectViewers  = "poimap.viewers"

	// DatasetStream keeps the last dataset per category.
	DatasetStream = "POIMAP_DATASETS"
)

// CountsSubject is where count-changed events for a category are published.
func CountsSubject(c domain.Category) string { return SubjectCounts + "." + string(c) }

// NoticesSubject is where notices for a category are published.
func NoticesSubject(c domain.Category) string { return SubjectNotices + "." + string(c) }

// DatasetsSubject is where finished datasets for a category are published.
func DatasetsSubject(c domain.Category) string { return SubjectDatasets + "." + string(c) }

// ViewerCountsSubject carries the per-viewer counts snapshot.
func ViewerCountsSubject(viewerID string) string {
	return SubjectViewers + "." + sanitizeToken(viewerID) + ".counts"
}

func sanitizeToken(s string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}

// CountMessage is published on every terminal ingestion transition.
type CountMessage struct {
	Category domain.Category `json:"category"`
	Count    int             `json:"count"`
	At       time.Time       `json:"at"`
}

// ViewerCountsMessage is published on every display recompute.
type ViewerCountsMessage struct {
	ViewerID string        `json:"viewer_id"`
	Counts   domain.Counts `json:"counts"`
	At       time.Time     `json:"at"`
}

// DatasetMessage carries a finished dataset between processes.
type DatasetMessage struct {
	Status  domain.LayerStatus `json:"status"`
	Dataset domain.Dataset     `json:"dataset"`
}
