package analyzers

import (
	"math"
	"sort"
	"strings"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
)

const (
	commentsMinCount   = 5
	themeMinMentions   = 2
	themeNegativeWarn  = 2
	maxListedThemes    = 5
	textedCompareGap   = 0.2
	positiveScoreFloor = 4
	negativeScoreCeil  = 2
)

// CommentThemes buckets free-text comments into the configured themes and
// counts positive and negative mentions.
type CommentThemes struct {
	Table *rules.Table
}

func (CommentThemes) Name() string { return "comment_themes" }

// ThemeCount is the per-theme tally over the recent comments.
type ThemeCount struct {
	Theme    rules.Theme
	Mentions int
	Positive int
	Negative int
}

// MatchThemes tallies theme mentions over the comments. A comment counts as
// positive when it carries a positive keyword or a score of 4+, negative on
// a negative keyword or a score of 2 or below. Shared with the synthesizer.
func MatchThemes(table *rules.Table, comments []domain.Comment) []ThemeCount {
	var counts []ThemeCount
	for _, theme := range table.Themes {
		tc := ThemeCount{Theme: theme}
		for _, c := range comments {
			text := strings.ToLower(c.Text)
			if text == "" || !containsAny(text, theme.Keywords) {
				continue
			}
			tc.Mentions++
			switch {
			case containsAny(text, theme.Negative) || c.Score <= negativeScoreCeil:
				tc.Negative++
			case containsAny(text, theme.Positive) || c.Score >= positiveScoreFloor:
				tc.Positive++
			}
		}
		if tc.Mentions >= themeMinMentions {
			counts = append(counts, tc)
		}
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i].Mentions > counts[j].Mentions })
	if len(counts) > maxListedThemes {
		counts = counts[:maxListedThemes]
	}
	return counts
}

// NegativeThemePresent reports whether any theme draws repeated complaints.
// Shared with the synthesizer.
func NegativeThemePresent(table *rules.Table, comments []domain.Comment) bool {
	for _, tc := range MatchThemes(table, comments) {
		if tc.Negative >= themeNegativeWarn {
			return true
		}
	}
	return false
}

func (ct CommentThemes) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	var nonEmpty []domain.Comment
	for _, c := range snap.Comments {
		if strings.TrimSpace(c.Text) != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	if len(nonEmpty) < commentsMinCount {
		return nil
	}

	counts := MatchThemes(ct.Table, nonEmpty)
	if len(counts) == 0 {
		return nil
	}

	lines := []string{"What patients write about most:"}
	for _, tc := range counts {
		lines = append(lines, bullet("%s: %d mentions (%d positive, %d negative)",
			tc.Theme.Label, tc.Mentions, tc.Positive, tc.Negative))
	}
	for _, tc := range counts {
		if tc.Negative >= themeNegativeWarn {
			lines = append(lines, warn("%s draws repeated complaints. Read those comments in full before deciding on a fix.",
				tc.Theme.Label))
		}
	}

	var sum float64
	for _, c := range nonEmpty {
		sum += float64(c.Score)
	}
	textedAvg := sum / float64(len(nonEmpty))
	if diff := textedAvg - snap.AvgScore; math.Abs(diff) >= textedCompareGap {
		if diff < 0 {
			lines = append(lines, bullet(
				"Patients who leave comments score you %.2f lower than average. The written feedback skews critical, which makes it more useful.",
				-diff))
		} else {
			lines = append(lines, bullet(
				"Patients who leave comments score you %.2f higher than average.", diff))
		}
	}

	return &domain.AdvisorySection{
		Title:   "Comment Themes",
		Content: joinLines(lines),
		Type:    domain.SectionCommentTheme,
	}
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(text, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
