package analyzers

import (
	"fmt"
	"sort"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	purposeMinPurposes   = 3
	purposeMinSamples    = 15
	purposeRowMinSamples = 3
	purposeDeviationFlag = 0.3
	purposeTrendBand     = 0.1
	insuranceMinSamples  = 5
	insuranceGapFlag     = 0.2
	emergencyDeficitFlag = 0.2
	maxListedPurposes    = 3
)

// PurposeDeepDive examines satisfaction by visit purpose over the 90-day
// window, including movement against the previous 90 days.
type PurposeDeepDive struct{}

func (PurposeDeepDive) Name() string { return "purpose" }

// WorstPurpose returns the lowest-scoring purpose with enough samples.
// Shared with the recommendation synthesizer.
func WorstPurpose(snap *domain.AnalysisSnapshot) (domain.GroupScore, bool) {
	var worst domain.GroupScore
	found := false
	for _, p := range snap.PurposeStats90.Purposes {
		if p.Count < purposeRowMinSamples {
			continue
		}
		if !found || p.AvgScore < worst.AvgScore {
			worst = p
			found = true
		}
	}
	return worst, found
}

func (PurposeDeepDive) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	purposes := snap.PurposeStats90.Purposes
	if len(purposes) < purposeMinPurposes {
		return nil
	}

	rows := make([]stats.WeightedScore, 0, len(purposes))
	total := 0
	for _, p := range purposes {
		rows = append(rows, stats.WeightedScore{Score: p.AvgScore, Count: p.Count})
		total += p.Count
	}
	if total < purposeMinSamples {
		return nil
	}
	overall, _ := stats.WeightedAverage(rows)

	prev := make(map[string]domain.GroupScore, len(snap.PrevPurposeStats90.Purposes))
	for _, p := range snap.PrevPurposeStats90.Purposes {
		prev[p.Key] = p
	}

	var lines []string

	low := deviatingPurposes(purposes, overall, false)
	for _, p := range low {
		lines = append(lines, warn("%q visits score %.1f, %.2f below your overall %.1f.%s",
			p.Key, p.AvgScore, overall-p.AvgScore, overall, purposeTrend(p, prev)))
	}

	high := deviatingPurposes(purposes, overall, true)
	for _, p := range high {
		lines = append(lines, bullet("%q visits score %.1f, %.2f above your overall %.1f.%s",
			p.Key, p.AvgScore, p.AvgScore-overall, overall, purposeTrend(p, prev)))
	}

	if gapLine := insuranceGap(snap.PurposeStats90.Insurance); gapLine != "" {
		lines = append(lines, gapLine)
	}

	for _, p := range purposes {
		if p.Key == "emergency" && p.Count >= purposeRowMinSamples &&
			overall-p.AvgScore >= emergencyDeficitFlag {
			lines = append(lines, warn(
				"Emergency visits rate below your average. Patients in pain judge the clinic hardest; triage speed and pain-first treatment order matter most here."))
			break
		}
	}

	if len(lines) == 0 {
		return nil
	}

	return &domain.AdvisorySection{
		Title:   "Satisfaction by Visit Purpose",
		Content: joinLines(lines),
		Type:    domain.SectionPurpose,
	}
}

// deviatingPurposes selects purposes at least 0.3 away from overall on the
// requested side, worst offenders first, capped at 3.
func deviatingPurposes(purposes []domain.GroupScore, overall float64, above bool) []domain.GroupScore {
	var out []domain.GroupScore
	for _, p := range purposes {
		if p.Count < purposeRowMinSamples {
			continue
		}
		if above && p.AvgScore-overall >= purposeDeviationFlag {
			out = append(out, p)
		}
		if !above && overall-p.AvgScore >= purposeDeviationFlag {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if above {
			return out[i].AvgScore > out[j].AvgScore
		}
		return out[i].AvgScore < out[j].AvgScore
	})
	if len(out) > maxListedPurposes {
		out = out[:maxListedPurposes]
	}
	return out
}

func purposeTrend(p domain.GroupScore, prev map[string]domain.GroupScore) string {
	pp, ok := prev[p.Key]
	if !ok || pp.Count < purposeRowMinSamples {
		return ""
	}
	delta := p.AvgScore - pp.AvgScore
	switch {
	case delta > purposeTrendBand:
		return fmt.Sprintf(" Improving: %+.2f versus the previous 90 days.", delta)
	case delta < -purposeTrendBand:
		return fmt.Sprintf(" Worsening: %+.2f versus the previous 90 days.", delta)
	default:
		return " Unchanged from the previous 90 days."
	}
}

func insuranceGap(groups []domain.GroupScore) string {
	var insured, selfPay *domain.GroupScore
	for i := range groups {
		switch groups[i].Key {
		case "insured":
			insured = &groups[i]
		case "self_pay":
			selfPay = &groups[i]
		}
	}
	if insured == nil || selfPay == nil ||
		insured.Count < insuranceMinSamples || selfPay.Count < insuranceMinSamples {
		return ""
	}
	gap := insured.AvgScore - selfPay.AvgScore
	if gap >= insuranceGapFlag {
		return warn("Self-pay patients score %.2f below insured ones (%.1f vs %.1f). Review how treatment costs and options are presented.",
			gap, selfPay.AvgScore, insured.AvgScore)
	}
	if -gap >= insuranceGapFlag {
		return bullet("Self-pay patients score %.2f above insured ones (%.1f vs %.1f).",
			-gap, selfPay.AvgScore, insured.AvgScore)
	}
	return ""
}
