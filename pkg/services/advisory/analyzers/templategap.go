package analyzers

import (
	"math"
	"sort"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
)

const (
	TemplateFirst   = "first"
	TemplateRevisit = "revisit"

	gapTemplateMinResponses = 5
	gapQuestionMinSamples   = 3
	gapFlagThreshold        = 0.3
)

// TemplateGap compares the first-visit and revisit survey templates on the
// categories they share.
type TemplateGap struct {
	Table *rules.Table
}

func (TemplateGap) Name() string { return "template_gap" }

type categoryGap struct {
	category string
	first    domain.QuestionScore
	revisit  domain.QuestionScore
	gap      float64 // first minus revisit
}

func (t TemplateGap) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	if snap.TemplateCounts[TemplateFirst] < gapTemplateMinResponses ||
		snap.TemplateCounts[TemplateRevisit] < gapTemplateMinResponses {
		return nil
	}

	byTemplate := make(map[string]map[string]domain.QuestionScore)
	for _, q := range snap.QuestionScores {
		if q.Category == "" {
			continue
		}
		if byTemplate[q.TemplateID] == nil {
			byTemplate[q.TemplateID] = make(map[string]domain.QuestionScore)
		}
		byTemplate[q.TemplateID][q.Category] = q
	}

	var gaps []categoryGap
	for _, cat := range t.Table.SharedCategories {
		first, okF := byTemplate[TemplateFirst][cat]
		revisit, okR := byTemplate[TemplateRevisit][cat]
		if !okF || !okR {
			continue
		}
		if first.Count < gapQuestionMinSamples || revisit.Count < gapQuestionMinSamples {
			continue
		}
		gap := first.Score - revisit.Score
		if math.Abs(gap) >= gapFlagThreshold {
			gaps = append(gaps, categoryGap{category: cat, first: first, revisit: revisit, gap: gap})
		}
	}
	if len(gaps) == 0 {
		return nil
	}

	sort.Slice(gaps, func(i, j int) bool {
		return math.Abs(gaps[i].gap) > math.Abs(gaps[j].gap)
	})

	lines := []string{"First-visit and returning patients experience your clinic differently:"}
	for _, g := range gaps {
		if g.gap > 0 {
			lines = append(lines, bullet(
				"%s: first-visit patients rate this %.2f higher (%.1f vs %.1f). The good first impression fades on return visits.",
				g.category, g.gap, g.first.Score, g.revisit.Score))
		} else {
			lines = append(lines, bullet(
				"%s: returning patients rate this %.2f higher (%.1f vs %.1f). New patients may need more attention here.",
				g.category, -g.gap, g.revisit.Score, g.first.Score))
		}
	}

	return &domain.AdvisorySection{
		Title:   "First Visit vs Revisit",
		Content: joinLines(lines),
		Type:    domain.SectionTemplateGap,
	}
}
