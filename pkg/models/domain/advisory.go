package domain

import "time"

type TriggerType string

const (
	TriggerThreshold TriggerType = "threshold"
	TriggerScheduled TriggerType = "scheduled"
	TriggerManual    TriggerType = "manual"
)

type SectionType string

const (
	SectionSummary      SectionType = "summary"
	SectionStrength     SectionType = "strength"
	SectionPattern      SectionType = "pattern"
	SectionTemplateGap  SectionType = "template_gap"
	SectionTimePattern  SectionType = "time_pattern"
	SectionDistribution SectionType = "distribution"
	SectionImprovement  SectionType = "improvement"
	SectionActionEffect SectionType = "action_effect"
	SectionTrend        SectionType = "trend"
	SectionBusiness     SectionType = "business"
	SectionSeasonality  SectionType = "seasonality"
	SectionStaff        SectionType = "staff"
	SectionCommentTheme SectionType = "comment_theme"
	SectionSegment      SectionType = "segment"
	SectionPurpose      SectionType = "purpose"
	SectionRetention    SectionType = "retention"
	SectionQuality      SectionType = "quality"
	SectionAction       SectionType = "action"
	SectionLLM          SectionType = "llm"
)

// AdvisorySection is one titled block of narrative output, the atomic unit
// of a report. Content may embed warning/arrow/bullet markers consumed by
// the presentation layer.
type AdvisorySection struct {
	Title   string
	Content string
	Type    SectionType
}

// AdvisoryReport is a persisted, write-once advisory. Sections is never
// empty: it starts with a summary (or prepended LLM) section and ends with
// the synthesized action section.
type AdvisoryReport struct {
	ID            string
	ClinicID      string
	TriggerType   TriggerType
	ResponseCount int
	Sections      []AdvisorySection
	Summary       string
	Priority      *int
	GeneratedAt   time.Time
}

// AdvisoryState is the per-clinic eligibility record. The response counter
// only ever increases, except for the reset performed inside a successful
// generation.
type AdvisoryState struct {
	ClinicID           string
	ResponsesSinceLast int
	Threshold          int
	TotalResponses     int
	LastGeneratedAt    *time.Time
}

const (
	// DefaultThreshold is the number of new responses between reports.
	DefaultThreshold = 30
	// MinTotalResponses is the floor below which no report is generated.
	MinTotalResponses = 30
)

// CanGenerate reports whether a new advisory may be produced.
func (s AdvisoryState) CanGenerate() bool {
	if s.TotalResponses < MinTotalResponses {
		return false
	}
	if s.ResponsesSinceLast >= s.Threshold {
		return true
	}
	// First report only needs the overall floor.
	return s.LastGeneratedAt == nil
}

// Percentage is progress towards the next report, capped at 100.
func (s AdvisoryState) Percentage() int {
	if s.Threshold <= 0 {
		return 0
	}
	pct := int(float64(s.ResponsesSinceLast)/float64(s.Threshold)*100 + 0.5)
	if pct > 100 {
		return 100
	}
	return pct
}

// AdvisoryProgress is the derived, non-persisted progress view.
type AdvisoryProgress struct {
	Current             int
	Threshold           int
	Percentage          int
	TotalResponses      int
	CanGenerate         bool
	DaysSinceLastReport *int
	LastReport          *AdvisoryReport
}
