package tui

const (
	anchorPreview        = "preview"
	anchorClassification = "classification"
	anchorSeverity       = "severity"
	anchorMetrics        = "metrics"
	anchorImages         = "images"
	anchorDetail         = "detail"
)

var sectionSequence = []string{
	anchorPreview,
	anchorClassification,
	anchorSeverity,
	anchorMetrics,
	anchorImages,
	anchorDetail,
}

const heroTagline = "Drop a leaf photo, get a diagnosis."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	maxThumbWidth             = 48
	minThumbWidth             = 16
	compactHeroBelowHeight    = 36
)

const (
	dropZonePlaceholder = "Drag an image here or type a path, then press Enter…"
	noDetailText        = "No response available"
	busyHelperText      = "Wait for the current request to finish."
)

// action is a user-triggered operation that may be disabled.
type action int

const (
	actionAnalyze action = iota
	actionDetail
	actionPreview
	actionExport
)
