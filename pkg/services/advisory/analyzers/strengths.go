package analyzers

import (
	"sort"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

const (
	strengthScoreFloor = 4.0
	strengthMinSamples = 5
	deltaUpBand        = 0.1
	deltaDownBand      = -0.1
	maxListedItems     = 5
)

// Strengths surfaces the highest-rated survey questions.
type Strengths struct{}

func (Strengths) Name() string { return "strengths" }

func (Strengths) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	var items []domain.QuestionScore
	for _, q := range snap.QuestionScores {
		if q.Score >= strengthScoreFloor && q.Count >= strengthMinSamples {
			items = append(items, q)
		}
	}
	if len(items) == 0 {
		return nil
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > maxListedItems {
		items = items[:maxListedItems]
	}

	lines := make([]string, 0, len(items)+1)
	lines = append(lines, "Patients consistently rate these areas highly:")
	for _, q := range items {
		lines = append(lines, bullet("%s: %.1f (%d responses)%s",
			q.Label, q.Score, q.Count, deltaPhrase(q)))
	}

	return &domain.AdvisorySection{
		Title:   "Your Strengths",
		Content: joinLines(lines),
		Type:    domain.SectionStrength,
	}
}

func deltaPhrase(q domain.QuestionScore) string {
	if q.PrevCount == 0 {
		return ""
	}
	delta := q.Score - q.PrevScore
	switch {
	case delta > deltaUpBand:
		return ", up from the previous period"
	case delta < deltaDownBand:
		return ", down from the previous period"
	default:
		return ", steady"
	}
}
