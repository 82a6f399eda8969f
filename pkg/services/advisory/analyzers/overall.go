package analyzers

import (
	"fmt"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	trendRisingDelta  = 0.05
	trendFallingDelta = -0.05
)

// Overall is the summary analyzer. It always produces a section and opens
// every report.
type Overall struct{}

func (Overall) Name() string { return "overall" }

func (Overall) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	label := stats.ScoreLabel(snap.AvgScore)

	lines := []string{
		fmt.Sprintf("Average satisfaction is %.1f out of 5 (%s) across %d responses.",
			snap.AvgScore, label, snap.TotalResponses),
	}

	if snap.PrevPeriodCount > 0 {
		delta := snap.AvgScore - snap.PrevAvgScore
		switch {
		case delta > trendRisingDelta:
			lines = append(lines, arrow("Satisfaction is rising: %+.2f versus the previous period (%.1f).",
				delta, snap.PrevAvgScore))
		case delta < trendFallingDelta:
			lines = append(lines, warn("Satisfaction is falling: %+.2f versus the previous period (%.1f).",
				delta, snap.PrevAvgScore))
		default:
			lines = append(lines, bullet("Satisfaction is flat versus the previous period (%.1f).",
				snap.PrevAvgScore))
		}
	}

	if mean, ok := meanDailyCount(snap.DailyTrend); ok {
		lines = append(lines, bullet("You collect %.1f responses per active day.", mean))
	}

	return &domain.AdvisorySection{
		Title:   "Overall Satisfaction",
		Content: joinLines(lines),
		Type:    domain.SectionSummary,
	}
}

// meanDailyCount averages the response count over days that received at
// least one response.
func meanDailyCount(trend []domain.DailyScore) (float64, bool) {
	var total, days int
	for _, d := range trend {
		if d.Count > 0 {
			total += d.Count
			days++
		}
	}
	if days == 0 {
		return 0, false
	}
	return float64(total) / float64(days), true
}
