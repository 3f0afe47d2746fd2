package telemetry

// Span attribute keys shared by the ingestion and display spans.
const (
	AttrCategory = "poimap.category"
	AttrSource   = "poimap.source"
	AttrCount    = "poimap.count"
	AttrFallback = "poimap.fallback"
	AttrViewer   = "poimap.viewer"
)
