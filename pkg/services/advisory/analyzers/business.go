package analyzers

import (
	"math"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	businessMinMonths    = 3
	correlationFlag      = 0.4
	visitChangeFlagShare = 0.05
)

// BusinessCorrelation relates the monthly satisfaction series to visit
// volume, self-pay share and cancellation rate.
type BusinessCorrelation struct{}

func (BusinessCorrelation) Name() string { return "business" }

// CorrelationSet holds the Pearson coefficients between monthly satisfaction
// and the joined business series. Months is the number of joined months.
type CorrelationSet struct {
	Months      int
	ScoreVisits float64
	ScoreSelf   float64
	ScoreCancel float64
}

// Correlate joins monthly scores and business metrics by calendar month and
// computes the correlation set. Shared with the recommendation synthesizer.
func Correlate(snap *domain.AnalysisSnapshot) CorrelationSet {
	metricsByMonth := make(map[string]domain.MonthlyMetrics, len(snap.BusinessMetrics))
	for _, m := range snap.BusinessMetrics {
		metricsByMonth[m.Month.Format("2006-01")] = m
	}

	var scores, visits, selfPay, cancels []float64
	for _, s := range snap.MonthlyScores {
		m, ok := metricsByMonth[s.Month.Format("2006-01")]
		if !ok {
			continue
		}
		scores = append(scores, s.AvgScore)
		visits = append(visits, float64(m.Visits))
		selfPay = append(selfPay, m.SelfPayRate)
		cancels = append(cancels, m.CancelRate())
	}

	return CorrelationSet{
		Months:      len(scores),
		ScoreVisits: stats.Pearson(scores, visits),
		ScoreSelf:   stats.Pearson(scores, selfPay),
		ScoreCancel: stats.Pearson(scores, cancels),
	}
}

// Adverse reports whether the correlations tie lower satisfaction to worse
// business outcomes.
func (c CorrelationSet) Adverse() bool {
	return c.ScoreVisits >= correlationFlag || c.ScoreCancel <= -correlationFlag
}

func (BusinessCorrelation) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	set := Correlate(snap)
	if set.Months < businessMinMonths {
		return nil
	}

	var lines []string
	if math.Abs(set.ScoreVisits) >= correlationFlag {
		if set.ScoreVisits > 0 {
			lines = append(lines, bullet(
				"Visit volume moves with satisfaction (r=%.2f): better-rated months bring more patients through the door.",
				set.ScoreVisits))
		} else {
			lines = append(lines, bullet(
				"Visit volume moves against satisfaction (r=%.2f): busy months appear to strain the experience.",
				set.ScoreVisits))
		}
	}
	if math.Abs(set.ScoreSelf) >= correlationFlag {
		if set.ScoreSelf > 0 {
			lines = append(lines, bullet(
				"Self-pay share rises with satisfaction (r=%.2f): happier patients accept more elective treatment.",
				set.ScoreSelf))
		} else {
			lines = append(lines, bullet(
				"Self-pay share falls as satisfaction rises (r=%.2f), worth a closer look at treatment-plan conversations.",
				set.ScoreSelf))
		}
	}
	if math.Abs(set.ScoreCancel) >= correlationFlag {
		if set.ScoreCancel < 0 {
			lines = append(lines, warn(
				"Cancellations climb when satisfaction dips (r=%.2f). Dissatisfaction is costing you booked chairs.",
				set.ScoreCancel))
		} else {
			lines = append(lines, bullet(
				"Cancellation rate and satisfaction move together (r=%.2f), which is unusual; treat with caution at this sample size.",
				set.ScoreCancel))
		}
	}

	if change, ok := visitChange(snap.BusinessMetrics); ok && math.Abs(change) >= visitChangeFlagShare {
		if change > 0 {
			lines = append(lines, bullet("Visits are up %.0f%% over the last three months versus the prior three.", change*100))
		} else {
			lines = append(lines, warn("Visits are down %.0f%% over the last three months versus the prior three.", -change*100))
		}
	}

	if len(lines) == 0 {
		return nil
	}

	return &domain.AdvisorySection{
		Title:   "Satisfaction and Business Results",
		Content: joinLines(lines),
		Type:    domain.SectionBusiness,
	}
}

// visitChange is the relative change of total visits, last three months
// versus the three before. Requires six months of metrics.
func visitChange(metrics []domain.MonthlyMetrics) (float64, bool) {
	if len(metrics) < 6 {
		return 0, false
	}
	last := metrics[len(metrics)-3:]
	prior := metrics[len(metrics)-6 : len(metrics)-3]

	var lastVisits, priorVisits int
	for _, m := range last {
		lastVisits += m.Visits
	}
	for _, m := range prior {
		priorVisits += m.Visits
	}
	if priorVisits == 0 {
		return 0, false
	}
	return float64(lastVisits-priorVisits) / float64(priorVisits), true
}
