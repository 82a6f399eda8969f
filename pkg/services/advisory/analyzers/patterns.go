package analyzers

import (
	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
)

// Patterns evaluates the static insight-rule table against the snapshot's
// category aggregates.
type Patterns struct {
	Table *rules.Table
}

func (Patterns) Name() string { return "patterns" }

func (p Patterns) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	matches := rules.MatchInsights(p.Table, snap.CategoryScores)
	if len(matches) == 0 {
		return nil
	}

	var lines []string
	for _, m := range matches {
		lines = append(lines,
			warn("%s (%s)", m.Insight, m.Detail),
			arrow("%s", m.Rule.Recommendation),
		)
	}

	return &domain.AdvisorySection{
		Title:   "Patterns Across Categories",
		Content: joinLines(lines),
		Type:    domain.SectionPattern,
	}
}
