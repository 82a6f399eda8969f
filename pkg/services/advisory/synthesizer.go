package advisory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/analyzers"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
)

const (
	priorityStartAction    = 1
	priorityQueueAction    = 2
	priorityPatternRule    = 2
	priorityWeakPurpose    = 3
	priorityStuckAction    = 3
	priorityStaffGap       = 3
	priorityNegativeVoices = 4
	priorityBusinessLink   = 4
	priorityNegativeTheme  = 4
	priorityTimePattern    = 5
	priorityLowSeason      = 5
	prioritySegmentGap     = 5
	priorityAskReviews     = 6
	priorityBiasCheck      = 6
	priorityTrackMetrics   = 7
	priorityFallback       = 8

	weakPurposeCeil       = 3.5
	negativeCommentScore  = 3
	negativeCommentsFloor = 3
	strongPositiveFloor   = 5
	strongPositiveCount   = 5
	addressableScoreCeil  = 4.0
	addressableMinSamples = 3
)

// Synthesizer merges the snapshot and the produced sections into exactly one
// prioritized action section. It never returns nil and never returns an
// empty list of actions.
type Synthesizer struct {
	table *rules.Table
}

func NewSynthesizer(table *rules.Table) *Synthesizer {
	return &Synthesizer{table: table}
}

type recommendation struct {
	priority int
	text     string
}

// Synthesize returns the action section and the numeric top priority of the
// fired heuristics. The priority is nil when only the fallback applied.
func (s *Synthesizer) Synthesize(
	snap *domain.AnalysisSnapshot,
	sections []domain.AdvisorySection,
) (domain.AdvisorySection, *int) {
	recs := s.collect(snap, sections)

	var topPriority *int
	if len(recs) == 0 {
		recs = append(recs, recommendation{
			priority: priorityFallback,
			text:     "No urgent issues surfaced this period. Maintain course and keep collecting responses; the next report will pick up any drift.",
		})
	} else {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].priority < recs[j].priority })
		p := recs[0].priority
		topPriority = &p
	}

	lines := make([]string, 0, len(recs))
	for i, r := range recs {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, r.text))
	}

	return domain.AdvisorySection{
		Title:   "Recommended Actions",
		Content: joinLines(lines),
		Type:    domain.SectionAction,
	}, topPriority
}

func (s *Synthesizer) collect(
	snap *domain.AnalysisSnapshot,
	sections []domain.AdvisorySection,
) []recommendation {
	var recs []recommendation
	add := func(priority int, format string, args ...any) {
		recs = append(recs, recommendation{priority: priority, text: fmt.Sprintf(format, args...)})
	}

	if item, ok := lowestUnaddressed(snap); ok {
		if len(snap.ActiveActions) == 0 {
			add(priorityStartAction,
				"Start an improvement action for %q (%.1f). It is your weakest measured area and nothing is being done about it yet.",
				item.Label, item.Score)
		} else {
			add(priorityQueueAction,
				"Queue %q (%.1f) as your next improvement action once a current one concludes.",
				item.Label, item.Score)
		}
	}

	if worst, ok := analyzers.WorstPurpose(snap); ok && worst.AvgScore < weakPurposeCeil {
		add(priorityWeakPurpose,
			"Dig into %q visits: at %.1f they are your weakest visit purpose. Observe two or three of these appointments end to end.",
			worst.Key, worst.AvgScore)
	}

	if n := countComments(snap.Comments, func(c domain.Comment) bool { return c.Score < negativeCommentScore }); n >= negativeCommentsFloor {
		add(priorityNegativeVoices,
			"Read the %d recent low-score comments as a set. Recurring words point at the root cause faster than any metric.", n)
	}

	if matches := rules.MatchInsights(s.table, snap.CategoryScores); len(matches) > 0 {
		add(priorityPatternRule, "%s.", capitalize(matches[0].Rule.Recommendation))
	}

	if hasSection(sections, domain.SectionTimePattern) {
		add(priorityTimePattern,
			"Address the weak time slots called out above before adding capacity there; scheduling fixes are cheaper than staffing fixes.")
	}

	for _, a := range snap.ActiveActions {
		if a.CurrentScore != nil && analyzers.BucketEffect(*a.CurrentScore-a.BaselineScore) == analyzers.EffectNoChange {
			add(priorityStuckAction,
				"%q has not moved its target score. Change the approach or retire it; an action that runs without effect hides the problem.",
				a.Title)
			break
		}
	}

	if set := analyzers.Correlate(snap); set.Months >= 3 && set.Adverse() {
		add(priorityBusinessLink,
			"Satisfaction is tracking your business results. Treat the improvement items above as revenue work, not soft work.")
	}

	if month, ok := analyzers.LowSeasonMonth(snap); ok {
		add(priorityLowSeason,
			"Prepare for %s ahead of time: it is your recurring weak month. Extra staffing slack and earlier reminders both help.", month)
	}

	if n := countComments(snap.Comments, func(c domain.Comment) bool { return c.Score >= strongPositiveFloor }); n >= strongPositiveCount {
		add(priorityAskReviews,
			"You have %d recent enthusiastic comments. Ask those patients for public reviews or referrals while the goodwill is fresh.", n)
	}

	if len(snap.BusinessMetrics) < 3 {
		add(priorityTrackMetrics,
			"Business metrics cover less than three months, which blinds the correlation and retention analyses. Backfill visit and cancellation numbers.")
	}

	if analyzers.StandardizationNeeded(snap) {
		add(priorityStaffGap,
			"Close the staff score gap with pair shadowing: have the lowest-rated member sit in on the highest-rated member's appointments for a week.")
	}

	if analyzers.NegativeThemePresent(s.table, snap.Comments) {
		add(priorityNegativeTheme,
			"One comment theme draws repeated complaints. Fix the specific irritation named there before investing anywhere else.")
	}

	if hasSection(sections, domain.SectionSegment) {
		add(prioritySegmentGap,
			"A patient segment is measurably less happy than the rest. Tailor communication for that group; generic fixes will not close a segment gap.")
	}

	if analyzers.BiasFlagged(snap) {
		add(priorityBiasCheck,
			"Scores cluster at 5, so the average flatters you. Collect some responses without staff present to calibrate.")
	}

	return recs
}

// lowestUnaddressed finds the weakest question not already targeted by an
// active improvement action.
func lowestUnaddressed(snap *domain.AnalysisSnapshot) (domain.QuestionScore, bool) {
	targeted := make(map[string]bool, len(snap.ActiveActions))
	for _, a := range snap.ActiveActions {
		targeted[a.QuestionID] = true
	}

	var worst domain.QuestionScore
	found := false
	for _, q := range snap.QuestionScores {
		if q.Count < addressableMinSamples || q.Score >= addressableScoreCeil || targeted[q.QuestionID] {
			continue
		}
		if !found || q.Score < worst.Score {
			worst = q
			found = true
		}
	}
	return worst, found
}

func countComments(comments []domain.Comment, match func(domain.Comment) bool) int {
	n := 0
	for _, c := range comments {
		if match(c) {
			n++
		}
	}
	return n
}

func hasSection(sections []domain.AdvisorySection, t domain.SectionType) bool {
	for _, s := range sections {
		if s.Type == t {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-('a'-'A')) + s[1:]
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
