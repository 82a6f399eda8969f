package analyzers

import (
	"sort"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	heatmapMinCells     = 5
	heatmapMinSamples   = 20
	weekdayMinSamples   = 5
	weekdayGapFlag      = 0.2
	slotGapFlag         = 0.15
	cellDeficitFlag     = 0.5
	cellMinSamples      = 3
	maxFlaggedCells     = 3
	morningEndsAtHour   = 12
	afternoonEndsAtHour = 17
)

// TimePattern looks for weekday, time-slot and single-cell weaknesses in the
// 90-day response heatmap.
type TimePattern struct{}

func (TimePattern) Name() string { return "time_pattern" }

func (TimePattern) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	cells := snap.Heatmap
	if len(cells) < heatmapMinCells {
		return nil
	}

	weighted := make([]stats.WeightedScore, 0, len(cells))
	total := 0
	for _, c := range cells {
		weighted = append(weighted, stats.WeightedScore{Score: c.AvgScore, Count: c.Count})
		total += c.Count
	}
	if total < heatmapMinSamples {
		return nil
	}
	overall, _ := stats.WeightedAverage(weighted)

	var lines []string
	lines = append(lines, weekdayFindings(cells)...)
	lines = append(lines, slotFindings(cells)...)
	lines = append(lines, weakCellFindings(cells, overall)...)
	if len(lines) == 0 {
		return nil
	}

	return &domain.AdvisorySection{
		Title:   "Time Patterns",
		Content: joinLines(lines),
		Type:    domain.SectionTimePattern,
	}
}

func weekdayFindings(cells []domain.HeatmapCell) []string {
	type agg struct {
		rows []stats.WeightedScore
		n    int
	}
	byDay := make(map[time.Weekday]agg)
	for _, c := range cells {
		a := byDay[c.Weekday]
		a.rows = append(a.rows, stats.WeightedScore{Score: c.AvgScore, Count: c.Count})
		a.n += c.Count
		byDay[c.Weekday] = a
	}

	type dayScore struct {
		day   time.Weekday
		score float64
	}
	var days []dayScore
	for d, a := range byDay {
		if a.n < weekdayMinSamples {
			continue
		}
		if avg, ok := stats.WeightedAverage(a.rows); ok {
			days = append(days, dayScore{day: d, score: avg})
		}
	}
	if len(days) < 2 {
		return nil
	}

	sort.Slice(days, func(i, j int) bool { return days[i].score < days[j].score })
	worst, best := days[0], days[len(days)-1]
	if best.score-worst.score < weekdayGapFlag {
		return nil
	}
	return []string{warn(
		"Satisfaction on %s (%.1f) runs %.2f below %s (%.1f). Check staffing and workload on the weaker day.",
		worst.day, worst.score, best.score-worst.score, best.day, best.score)}
}

func slotFindings(cells []domain.HeatmapCell) []string {
	slots := map[string][]stats.WeightedScore{}
	for _, c := range cells {
		name := slotName(c.Hour)
		slots[name] = append(slots[name], stats.WeightedScore{Score: c.AvgScore, Count: c.Count})
	}

	type slotScore struct {
		name  string
		score float64
	}
	var scored []slotScore
	for name, rows := range slots {
		if avg, ok := stats.WeightedAverage(rows); ok {
			scored = append(scored, slotScore{name: name, score: avg})
		}
	}
	if len(scored) < 2 {
		return nil
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score < scored[j].score })
	worst, best := scored[0], scored[len(scored)-1]
	if best.score-worst.score < slotGapFlag {
		return nil
	}
	return []string{bullet(
		"%s appointments score %.2f lower than %s ones (%.1f vs %.1f).",
		worst.name, best.score-worst.score, best.name, worst.score, best.score)}
}

func weakCellFindings(cells []domain.HeatmapCell, overall float64) []string {
	var weak []domain.HeatmapCell
	for _, c := range cells {
		if c.Count >= cellMinSamples && overall-c.AvgScore > cellDeficitFlag {
			weak = append(weak, c)
		}
	}
	sort.Slice(weak, func(i, j int) bool { return weak[i].AvgScore < weak[j].AvgScore })
	if len(weak) > maxFlaggedCells {
		weak = weak[:maxFlaggedCells]
	}

	var lines []string
	for _, c := range weak {
		lines = append(lines, bullet("%s around %02d:00 averages %.1f, well below your overall %.1f.",
			c.Weekday, c.Hour, c.AvgScore, overall))
	}
	return lines
}

func slotName(hour int) string {
	switch {
	case hour < morningEndsAtHour:
		return "morning"
	case hour < afternoonEndsAtHour:
		return "afternoon"
	default:
		return "evening"
	}
}
