package analyzers

import (
	"math"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	retentionMinMonths  = 3
	firstRatioFlagPP    = 3.0
	cancelRateFlag      = 0.10
	cancelDeltaFlagPP   = 2.0
	loyaltyGoodFloor    = 4.2
	loyaltyWeakCeil     = 3.5
	stabilityWindow     = 6
	stableStdDevCeil    = 0.15
	volatileStdDevFloor = 0.3
	goodScoreFloor      = 4.0
	lowRevisitShareCeil = 0.5
)

// RetentionSignals reads patient-retention signals out of the monthly
// business metrics and the loyalty survey category.
type RetentionSignals struct {
	Table *rules.Table
}

func (RetentionSignals) Name() string { return "retention" }

func (r RetentionSignals) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	metrics := snap.BusinessMetrics
	if len(metrics) < retentionMinMonths {
		return nil
	}

	var lines []string

	if len(metrics) >= 6 {
		lastRatio := avgFirstVisitRate(metrics[len(metrics)-3:])
		priorRatio := avgFirstVisitRate(metrics[len(metrics)-6 : len(metrics)-3])
		deltaPP := (lastRatio - priorRatio) * 100
		if math.Abs(deltaPP) >= firstRatioFlagPP {
			if deltaPP > 0 {
				lines = append(lines, bullet(
					"First visits make up a growing share of your patients (%+.1f points over three months). New-patient acquisition is working; watch that returning patients are not being crowded out.",
					deltaPP))
			} else {
				lines = append(lines, warn(
					"First visits shrank %.1f points as a share of patients over three months. If total visits are flat, you are living off your existing base.",
					-deltaPP))
			}
		}
	}

	lines = append(lines, revisitNarrative(metrics, snap.AvgScore))

	lines = append(lines, cancellationFindings(metrics)...)

	if line := loyaltyFinding(r.Table, snap.CategoryScores); line != "" {
		lines = append(lines, line)
	}

	if line := stabilityFinding(snap.MonthlyScores); line != "" {
		lines = append(lines, line)
	}

	return &domain.AdvisorySection{
		Title:   "Retention Signals",
		Content: joinLines(lines),
		Type:    domain.SectionRetention,
	}
}

func avgFirstVisitRate(metrics []domain.MonthlyMetrics) float64 {
	if len(metrics) == 0 {
		return 0
	}
	var sum float64
	for _, m := range metrics {
		sum += m.FirstVisitRate()
	}
	return sum / float64(len(metrics))
}

func revisitNarrative(metrics []domain.MonthlyMetrics, avgScore float64) string {
	recent := metrics
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	revisitShare := 1 - avgFirstVisitRate(recent)

	switch {
	case avgScore >= goodScoreFloor && revisitShare < lowRevisitShareCeil:
		return bullet(
			"Patients are satisfied (%.1f) but only %.0f%% of visits are returns. Satisfaction is not converting into recall compliance; review how the next appointment is booked before the patient leaves.",
			avgScore, revisitShare*100)
	case avgScore < goodScoreFloor && revisitShare < lowRevisitShareCeil:
		return warn(
			"Both satisfaction (%.1f) and the revisit share (%.0f%%) are low. Retention problems usually start with the experience itself; fix the lowest-scoring areas first.",
			avgScore, revisitShare*100)
	default:
		return bullet("%.0f%% of recent visits are returning patients, with satisfaction at %.1f.",
			revisitShare*100, avgScore)
	}
}

func cancellationFindings(metrics []domain.MonthlyMetrics) []string {
	recent := metrics
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	var sum float64
	for _, m := range recent {
		sum += m.CancelRate()
	}
	avgCancel := sum / float64(len(recent))

	var lines []string
	if avgCancel >= cancelRateFlag {
		lines = append(lines, warn(
			"Cancellations run at %.0f%% of bookings over the last three months. Same-week reminder calls or messages are the cheapest lever here.",
			avgCancel*100))
	}

	if len(metrics) >= 6 {
		var priorSum float64
		for _, m := range metrics[len(metrics)-6 : len(metrics)-3] {
			priorSum += m.CancelRate()
		}
		priorCancel := priorSum / 3
		if deltaPP := (avgCancel - priorCancel) * 100; deltaPP > cancelDeltaFlagPP {
			lines = append(lines, warn(
				"The cancellation rate climbed %.1f points in three months. Something changed; check scheduling lead times and reminder coverage.",
				deltaPP))
		}
	}
	return lines
}

func loyaltyFinding(table *rules.Table, categories []domain.CategoryScore) string {
	for _, c := range categories {
		if c.Category != table.LoyaltyCategory {
			continue
		}
		switch {
		case c.AvgScore >= loyaltyGoodFloor:
			return bullet("Intent to return scores %.1f. Your base is loyal; referral asks will land well.", c.AvgScore)
		case c.AvgScore < loyaltyWeakCeil:
			return warn("Intent to return scores only %.1f. Expect churn unless the core experience improves.", c.AvgScore)
		}
		return ""
	}
	return ""
}

func stabilityFinding(scores []domain.MonthlyScore) string {
	if len(scores) < stabilityWindow {
		return ""
	}
	recent := scores[len(scores)-stabilityWindow:]
	series := make([]float64, len(recent))
	for i, s := range recent {
		series[i] = s.AvgScore
	}
	sd := stats.StdDev(series)
	switch {
	case sd < stableStdDevCeil:
		return bullet("Monthly satisfaction has been stable for six months (spread %.2f).", sd)
	case sd > volatileStdDevFloor:
		return warn("Monthly satisfaction swings widely (spread %.2f). Inconsistent experience erodes trust faster than a constant mediocre one.", sd)
	default:
		return ""
	}
}
