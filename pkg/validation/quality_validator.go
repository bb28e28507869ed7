package validation

import (
	"slices"

	"github.com/anime-shed/note-inspector-go/internal/engine"
)

// QualityThresholds defines configurable thresholds for candidate photos
type QualityThresholds struct {
	// Sharpness thresholds
	MinLaplacianVariance float64

	// Exposure thresholds on the 0..255 gray scale
	MinBrightness float64
	MaxBrightness float64
	MinContrast   float64

	// Resolution thresholds, shorter and longer side
	MinShortSide int
	MinLongSide  int
}

// DefaultQualityThresholds returns the default quality thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinLaplacianVariance: 100.0,
		MinBrightness:        40.0,
		MaxBrightness:        230.0,
		MinContrast:          15.0,
		MinShortSide:         100,
		MinLongSide:          200,
	}
}

// QualityValidator turns candidate quality metrics into advisory issues.
// Issues never change a verdict.
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// Issue severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// QualityIssue is one advisory finding about a candidate photo
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"`
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// isImageBlurry treats low Laplacian variance as blur unless the photo is
// otherwise well exposed with strong contrast, which happens for notes
// with large flat printed areas.
func (qv *QualityValidator) isImageBlurry(m engine.QualityMetrics) bool {
	switch {
	case m.LaplacianVariance >= qv.thresholds.MinLaplacianVariance:
		return false
	case m.LaplacianVariance < 1:
		return true
	}
	exposed := m.Brightness > qv.thresholds.MinBrightness && m.Brightness < qv.thresholds.MaxBrightness
	return !exposed || m.Contrast < 2*qv.thresholds.MinContrast
}

// ValidateCandidate checks a candidate photo for problems that commonly
// prevent a confident match
func (qv *QualityValidator) ValidateCandidate(m engine.QualityMetrics) []QualityIssue {
	t := qv.thresholds
	var issues []QualityIssue
	report := func(kind, severity, msg string, actual, limit float64) {
		issues = append(issues, QualityIssue{kind, msg, severity, actual, limit})
	}

	short, long := min(m.Width, m.Height), max(m.Width, m.Height)
	if short < t.MinShortSide || long < t.MinLongSide {
		report("low_resolution", SeverityError,
			"Image is too small. Move closer so the note fills the photo.",
			float64(short), float64(t.MinShortSide))
	}
	if qv.isImageBlurry(m) {
		report("blurriness", SeverityError,
			"Image is blurry. Please hold the camera steady and try again.",
			m.LaplacianVariance, t.MinLaplacianVariance)
	}
	switch {
	case m.Brightness <= t.MinBrightness:
		report("too_dark", SeverityError,
			"Image is too dark. Take the photo in more light.",
			m.Brightness, t.MinBrightness)
	case m.Brightness >= t.MaxBrightness:
		report("too_bright", SeverityError,
			"Image is too bright. Avoid strong sunlight or flash.",
			m.Brightness, t.MaxBrightness)
	}
	if m.Contrast < t.MinContrast {
		report("low_contrast", SeverityWarning,
			"Image looks faded. Place the note on a plain background in even light.",
			m.Contrast, t.MinContrast)
	}
	return issues
}

// ConvertIssuesToMessages keeps only the user-facing text
func (qv *QualityValidator) ConvertIssuesToMessages(issues []QualityIssue) []string {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues reports whether any issue is an error
func (qv *QualityValidator) HasCriticalIssues(issues []QualityIssue) bool {
	return slices.ContainsFunc(issues, func(i QualityIssue) bool {
		return i.Severity == SeverityError
	})
}
