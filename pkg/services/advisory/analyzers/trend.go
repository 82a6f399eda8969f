package analyzers

import (
	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	trendMinDays       = 7
	trendBand          = 0.1
	countDropFlagShare = 0.30
	slopeMinPoints     = 10
	slopeBand          = 0.1
	slopeWindowDays    = 30
)

// Trend tracks the 30-day daily score series: week-over-week movement,
// response volume drops and the least-squares slope.
type Trend struct{}

func (Trend) Name() string { return "trend" }

func (Trend) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	trend := snap.DailyTrend

	var valid []domain.DailyScore
	for _, d := range trend {
		if d.Count > 0 {
			valid = append(valid, d)
		}
	}
	if len(valid) < trendMinDays {
		return nil
	}

	var lines []string

	last, prior := weekWindows(trend)

	lastAvg, lastOK := weightedDaily(last)
	priorAvg, priorOK := weightedDaily(prior)
	if lastOK && priorOK {
		delta := lastAvg - priorAvg
		switch {
		case delta > trendBand:
			lines = append(lines, arrow("The last 7 days average %.1f, up %+.2f on the week before.", lastAvg, delta))
		case delta < -trendBand:
			lines = append(lines, warn("The last 7 days average %.1f, down %+.2f on the week before.", lastAvg, delta))
		default:
			lines = append(lines, bullet("Weekly averages are stable (%.1f vs %.1f).", lastAvg, priorAvg))
		}
	}

	lastCount := sumCounts(last)
	priorCount := sumCounts(prior)
	if priorCount > 0 && lastCount < priorCount &&
		float64(priorCount-lastCount)/float64(priorCount) > countDropFlagShare {
		lines = append(lines, warn(
			"Response volume fell from %d to %d week over week. Fewer answers make every other signal noisier.",
			priorCount, lastCount))
	}

	if len(valid) >= slopeMinPoints {
		series := make([]float64, len(valid))
		for i, d := range valid {
			series[i] = d.AvgScore
		}
		slope := stats.OLSSlope(series) * slopeWindowDays
		switch {
		case slope > slopeBand:
			lines = append(lines, bullet("The underlying trend is rising: about %+.2f per 30 days.", slope))
		case slope < -slopeBand:
			lines = append(lines, warn("The underlying trend is falling: about %+.2f per 30 days.", slope))
		}
	}

	if len(lines) == 0 {
		return nil
	}

	return &domain.AdvisorySection{
		Title:   "Satisfaction Trend",
		Content: joinLines(lines),
		Type:    domain.SectionTrend,
	}
}

// weekWindows splits the series into the last 7 calendar days and the 7
// days before them, anchored on the newest recorded day. Days missing from
// the series or recorded with zero responses never shift a window.
func weekWindows(days []domain.DailyScore) (last, prior []domain.DailyScore) {
	latest := days[len(days)-1].Date
	weekCut := latest.AddDate(0, 0, -trendMinDays)
	priorCut := latest.AddDate(0, 0, -2*trendMinDays)

	for _, d := range days {
		switch {
		case d.Date.After(weekCut):
			last = append(last, d)
		case d.Date.After(priorCut):
			prior = append(prior, d)
		}
	}
	return last, prior
}

func weightedDaily(days []domain.DailyScore) (float64, bool) {
	rows := make([]stats.WeightedScore, 0, len(days))
	for _, d := range days {
		rows = append(rows, stats.WeightedScore{Score: d.AvgScore, Count: d.Count})
	}
	return stats.WeightedAverage(rows)
}

func sumCounts(days []domain.DailyScore) int {
	total := 0
	for _, d := range days {
		total += d.Count
	}
	return total
}
