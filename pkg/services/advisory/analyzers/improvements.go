package analyzers

import (
	"sort"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

const (
	improvementScoreCeil  = 4.0
	improvementMinSamples = 3
	worseningDelta        = 0.2
)

// Improvements mirrors Strengths: the lowest-rated questions, worst first,
// with items that worsened versus the previous period flagged separately.
type Improvements struct{}

func (Improvements) Name() string { return "improvements" }

func (Improvements) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	var items []domain.QuestionScore
	for _, q := range snap.QuestionScores {
		if q.Score > 0 && q.Score < improvementScoreCeil && q.Count >= improvementMinSamples {
			items = append(items, q)
		}
	}
	if len(items) == 0 {
		return nil
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Score < items[j].Score })

	listed := items
	if len(listed) > maxListedItems {
		listed = listed[:maxListedItems]
	}

	lines := []string{"These areas score below the rest and deserve attention:"}
	for _, q := range listed {
		lines = append(lines, bullet("%s: %.1f (%d responses)%s",
			q.Label, q.Score, q.Count, deltaPhrase(q)))
	}

	// Worsening warnings cover every qualifying question, not just the
	// listed worst. A decline outside the top list is still a decline.
	for _, q := range items {
		if q.PrevCount > 0 && q.PrevScore-q.Score >= worseningDelta {
			lines = append(lines, warn("%s dropped %.2f since the previous period. This is an active decline, not a long-standing weakness.",
				q.Label, q.PrevScore-q.Score))
		}
	}

	return &domain.AdvisorySection{
		Title:   "Improvement Opportunities",
		Content: joinLines(lines),
		Type:    domain.SectionImprovement,
	}
}
