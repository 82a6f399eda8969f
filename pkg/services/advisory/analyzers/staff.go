package analyzers

import (
	"sort"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	staffMinMembers     = 2
	staffMinSamples     = 10
	staffRankMinSamples = 3
	staffGapWarn        = 0.5
	staffGapTight       = 0.2
	roleMinRoles        = 2
)

// StaffPerformance ranks staff members by patient score and flags spreads
// that suggest uneven service quality.
type StaffPerformance struct{}

func (StaffPerformance) Name() string { return "staff" }

// StaffGap returns the top-to-bottom score spread among rankable staff.
// Shared with the recommendation synthesizer.
func StaffGap(snap *domain.AnalysisSnapshot) (float64, bool) {
	ranked := rankableStaff(snap)
	if len(ranked) < staffMinMembers {
		return 0, false
	}
	return ranked[0].AvgScore - ranked[len(ranked)-1].AvgScore, true
}

// StandardizationNeeded reports whether the staff spread crosses the
// warning threshold. Shared with the synthesizer.
func StandardizationNeeded(snap *domain.AnalysisSnapshot) bool {
	gap, ok := StaffGap(snap)
	return ok && gap >= staffGapWarn
}

func rankableStaff(snap *domain.AnalysisSnapshot) []domain.StaffScore {
	var ranked []domain.StaffScore
	for _, s := range snap.StaffScores {
		if s.Count >= staffRankMinSamples {
			ranked = append(ranked, s)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].AvgScore > ranked[j].AvgScore })
	return ranked
}

func (StaffPerformance) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	if len(snap.StaffScores) < staffMinMembers {
		return nil
	}
	total := 0
	for _, s := range snap.StaffScores {
		total += s.Count
	}
	if total < staffMinSamples {
		return nil
	}

	ranked := rankableStaff(snap)
	if len(ranked) < staffMinMembers {
		return nil
	}

	lines := []string{"Patient scores by staff member:"}
	for _, s := range ranked {
		lines = append(lines, bullet("%s (%s): %.1f over %d responses", s.Name, s.Role, s.AvgScore, s.Count))
	}

	gap := ranked[0].AvgScore - ranked[len(ranked)-1].AvgScore
	switch {
	case gap >= staffGapWarn:
		lines = append(lines, warn(
			"The gap between your highest and lowest rated staff is %.2f. Service quality needs standardization; pair shadowing or shared scripts usually help.",
			gap))
	case gap < staffGapTight:
		lines = append(lines, bullet("Scores are within %.2f of each other. Service quality is well standardized.", gap))
	}

	if roleLines := roleAggregates(snap.StaffScores); roleLines != nil {
		lines = append(lines, roleLines...)
	}

	return &domain.AdvisorySection{
		Title:   "Staff Performance",
		Content: joinLines(lines),
		Type:    domain.SectionStaff,
	}
}

func roleAggregates(scores []domain.StaffScore) []string {
	byRole := map[string][]stats.WeightedScore{}
	for _, s := range scores {
		byRole[s.Role] = append(byRole[s.Role], stats.WeightedScore{Score: s.AvgScore, Count: s.Count})
	}
	if len(byRole) < roleMinRoles {
		return nil
	}

	type roleScore struct {
		role  string
		score float64
	}
	var roles []roleScore
	for role, rows := range byRole {
		if avg, ok := stats.WeightedAverage(rows); ok {
			roles = append(roles, roleScore{role: role, score: avg})
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].score > roles[j].score })

	lines := []string{"By role:"}
	for _, r := range roles {
		lines = append(lines, bullet("%s: %.1f", r.role, r.score))
	}
	return lines
}
