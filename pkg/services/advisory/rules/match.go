package rules

import (
	"fmt"
	"strings"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

const (
	highFloor = 4.0
	lowCeil   = 3.8
	maxFired  = 3
)

// Match is one fired insight rule annotated with the category scores that
// triggered it.
type Match struct {
	Rule    InsightRule
	Detail  string
	Insight string
}

// MatchInsights evaluates the insight rules against the snapshot's category
// aggregates. A rule fires only when every high category averages at least
// 4.0 and every low category averages below 3.8; categories absent from the
// snapshot (fewer than 5 samples) block the rule. At most 3 matches are
// returned, in table order.
func MatchInsights(t *Table, categories []domain.CategoryScore) []Match {
	scores := make(map[string]float64, len(categories))
	for _, c := range categories {
		scores[c.Category] = c.AvgScore
	}

	var fired []Match
	for _, rule := range t.InsightRules {
		if len(fired) == maxFired {
			break
		}
		if !allAtLeast(scores, rule.HighCategories, highFloor) {
			continue
		}
		if !allBelow(scores, rule.LowCategories, lowCeil) {
			continue
		}

		var parts []string
		for _, cat := range rule.HighCategories {
			parts = append(parts, fmt.Sprintf("%s %.1f", cat, scores[cat]))
		}
		for _, cat := range rule.LowCategories {
			parts = append(parts, fmt.Sprintf("%s %.1f", cat, scores[cat]))
		}

		fired = append(fired, Match{
			Rule:    rule,
			Detail:  strings.Join(parts, ", "),
			Insight: rule.Insight,
		})
	}
	return fired
}

func allAtLeast(scores map[string]float64, cats []string, floor float64) bool {
	for _, cat := range cats {
		s, ok := scores[cat]
		if !ok || s < floor {
			return false
		}
	}
	return len(cats) > 0
}

func allBelow(scores map[string]float64, cats []string, ceil float64) bool {
	for _, cat := range cats {
		s, ok := scores[cat]
		if !ok || s >= ceil {
			return false
		}
	}
	return len(cats) > 0
}
