package analyzers

import (
	"fmt"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	distributionMinSamples = 20
	polarizedLowShare      = 15.0
	polarizedHighShare     = 40.0
	consistentStdDev       = 0.6
	consistentMeanFloor    = 4.0
	someLowShare           = 10.0
)

// Distribution describes the 1-5 score histogram and flags polarized or
// unusually consistent response patterns.
type Distribution struct{}

func (Distribution) Name() string { return "distribution" }

func (Distribution) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	total := 0
	for _, c := range snap.ScoreHistogram {
		total += c
	}
	if total < distributionMinSamples {
		return nil
	}

	values := make([]float64, 0, total)
	for i, c := range snap.ScoreHistogram {
		score := float64(i + 1)
		for j := 0; j < c; j++ {
			values = append(values, score)
		}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(total)
	sd := stats.StdDev(values)

	lowShare := float64(snap.ScoreHistogram[0]+snap.ScoreHistogram[1]) / float64(total) * 100
	highShare := float64(snap.ScoreHistogram[3]+snap.ScoreHistogram[4]) / float64(total) * 100

	lines := []string{fmt.Sprintf(
		"Scores average %.1f with a spread of %.2f; %.0f%% of patients score 2 or below and %.0f%% score 4 or above.",
		mean, sd, lowShare, highShare)}

	switch {
	case lowShare >= polarizedLowShare && highShare >= polarizedHighShare:
		lines = append(lines, warn(
			"Responses are polarized: most patients are happy but a meaningful group is clearly not. The unhappy group deserves direct follow-up."))
	case sd < consistentStdDev && mean >= consistentMeanFloor:
		lines = append(lines, bullet(
			"Responses are consistent and high. Patient experience is stable across visits."))
	case lowShare >= someLowShare:
		lines = append(lines, bullet(
			"A notable share of low scores is mixed into otherwise ordinary results. Skim recent low-score comments for causes."))
	}

	return &domain.AdvisorySection{
		Title:   "Score Distribution",
		Content: joinLines(lines),
		Type:    domain.SectionDistribution,
	}
}
