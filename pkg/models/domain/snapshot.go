package domain

import "time"

// AnalysisSnapshot is the read-only aggregated view of a clinic's recent
// survey and business data. It is built fresh for every generation run and
// discarded afterwards; analyzers must not mutate it.
type AnalysisSnapshot struct {
	ClinicID       string
	BuiltAt        time.Time
	TotalResponses int

	// Current and previous period overall averages. PrevPeriodCount == 0
	// means there is no previous period to compare against.
	AvgScore        float64
	PrevAvgScore    float64
	PrevPeriodCount int

	// Responses per survey template over the last 90 days.
	TemplateCounts map[string]int

	QuestionScores []QuestionScore
	DailyTrend     []DailyScore  // last 30 days, ascending
	Heatmap        []HeatmapCell // last 90 days

	PurposeStats30     SatisfactionStats
	PurposeStats90     SatisfactionStats
	PrevPurposeStats90 SatisfactionStats

	Comments      []Comment // up to 50 most recent non-empty free texts
	ActiveActions []ImprovementAction

	// ScoreHistogram[0] counts score 1 responses, ScoreHistogram[4] score 5.
	ScoreHistogram [5]int

	// Only categories with at least 5 samples are included.
	CategoryScores []CategoryScore

	BusinessMetrics []MonthlyMetrics // up to 24 months, ascending
	MonthlyScores   []MonthlyScore   // ascending

	StaffScores   []StaffScore
	SegmentScores []SegmentScore
	Quality       ResponseQuality
}

type QuestionScore struct {
	TemplateID string
	QuestionID string
	Label      string
	Category   string
	Score      float64
	Count      int
	PrevScore  float64
	PrevCount  int
}

type DailyScore struct {
	Date     time.Time
	Count    int
	AvgScore float64
}

type HeatmapCell struct {
	Weekday  time.Weekday
	Hour     int
	Count    int
	AvgScore float64
}

// GroupScore is a generic keyed average used for purpose, insurance and
// similar breakdowns.
type GroupScore struct {
	Key      string
	Count    int
	AvgScore float64
}

type SatisfactionStats struct {
	Purposes  []GroupScore
	Insurance []GroupScore // keys: "insured", "self_pay"
}

type Comment struct {
	Text      string
	Score     int
	CreatedAt time.Time
}

type ImprovementAction struct {
	ID            string
	Title         string
	QuestionID    string
	BaselineScore float64
	StartDate     time.Time
	// CurrentScore is nil when the target question has no recent responses.
	CurrentScore *float64
}

type CategoryScore struct {
	Category string
	Count    int
	AvgScore float64
}

type MonthlyMetrics struct {
	Month       time.Time // first day of month
	Visits      int
	FirstVisits int
	Cancels     int
	SelfPayRate float64 // share of self-pay revenue, 0..1
}

// CancelRate is the share of booked slots that were cancelled.
func (m MonthlyMetrics) CancelRate() float64 {
	total := m.Visits + m.Cancels
	if total == 0 {
		return 0
	}
	return float64(m.Cancels) / float64(total)
}

// FirstVisitRate is the share of visits that were first visits.
func (m MonthlyMetrics) FirstVisitRate() float64 {
	if m.Visits == 0 {
		return 0
	}
	return float64(m.FirstVisits) / float64(m.Visits)
}

type MonthlyScore struct {
	Month    time.Time
	Count    int
	AvgScore float64
}

type StaffScore struct {
	StaffID  string
	Name     string
	Role     string
	Count    int
	AvgScore float64
}

// SegmentScore is a patient-segment average along one segmentation axis.
type SegmentScore struct {
	Axis     SegmentAxis
	Value    string
	Count    int
	AvgScore float64
}

type SegmentAxis string

const (
	SegmentVisitType SegmentAxis = "visit_type"
	SegmentInsurance SegmentAxis = "insurance"
	SegmentAgeGroup  SegmentAxis = "age_group"
	SegmentGender    SegmentAxis = "gender"
)

type ResponseQuality struct {
	TaggedCount     int // responses carrying quality metadata
	TextedCount     int // responses with a free-text comment
	TextedAvg       float64
	UntextedCount   int
	UntextedAvg     float64
	AvgDurationSecs float64
}

// FreeTextRate is the share of quality-tagged responses that include a
// free-text comment.
func (q ResponseQuality) FreeTextRate() float64 {
	if q.TaggedCount == 0 {
		return 0
	}
	return float64(q.TextedCount) / float64(q.TaggedCount)
}
