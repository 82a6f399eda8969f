package analyzers

import (
	"sort"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

const (
	segmentsMinTagged   = 10
	segmentValueSamples = 5
	segmentGapFlag      = 0.15
	ageGapFlag          = 0.2
	ageMinGroups        = 3
)

// PatientSegments compares satisfaction across visit type, insurance type,
// age group and gender.
type PatientSegments struct{}

func (PatientSegments) Name() string { return "segments" }

func (PatientSegments) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	byAxis := map[domain.SegmentAxis][]domain.SegmentScore{}
	tagged := 0
	for _, s := range snap.SegmentScores {
		byAxis[s.Axis] = append(byAxis[s.Axis], s)
	}
	for _, s := range byAxis[domain.SegmentVisitType] {
		tagged += s.Count
	}
	if tagged == 0 {
		// Fall back to the largest axis when visit type is not tagged.
		for _, values := range byAxis {
			n := 0
			for _, s := range values {
				n += s.Count
			}
			if n > tagged {
				tagged = n
			}
		}
	}
	if tagged < segmentsMinTagged {
		return nil
	}

	var lines []string
	for _, axis := range []domain.SegmentAxis{
		domain.SegmentVisitType, domain.SegmentInsurance, domain.SegmentAgeGroup, domain.SegmentGender,
	} {
		lines = append(lines, axisFindings(axis, byAxis[axis])...)
	}
	if len(lines) == 0 {
		return nil
	}

	return &domain.AdvisorySection{
		Title:   "Patient Segments",
		Content: joinLines(lines),
		Type:    domain.SectionSegment,
	}
}

func axisFindings(axis domain.SegmentAxis, values []domain.SegmentScore) []string {
	var usable []domain.SegmentScore
	for _, v := range values {
		if v.Count >= segmentValueSamples {
			usable = append(usable, v)
		}
	}
	if len(usable) < 2 {
		return nil
	}

	sort.Slice(usable, func(i, j int) bool { return usable[i].AvgScore < usable[j].AvgScore })
	low, high := usable[0], usable[len(usable)-1]
	gap := high.AvgScore - low.AvgScore

	flag := segmentGapFlag
	if axis == domain.SegmentAgeGroup {
		if len(usable) < ageMinGroups {
			return nil
		}
		flag = ageGapFlag
	}
	if gap < flag {
		return nil
	}

	line := bullet("%s: %q patients score %.1f versus %.1f for %q (gap %.2f).",
		axisLabel(axis), low.Value, low.AvgScore, high.AvgScore, high.Value, gap)
	lines := []string{line}

	switch {
	case axis == domain.SegmentInsurance && low.Value == "self_pay":
		lines = append(lines, warn(
			"Self-pay patients are your least satisfied group. Cost expectations are the usual cause; written estimates and option menus help."))
	case axis == domain.SegmentAgeGroup && (usable[0] == low && isEdgeGroup(usable, low)):
		lines = append(lines, bullet(
			"The weakest age group sits at the edge of your patient base. Communication style tuned to that group (pace, materials, follow-up) usually moves this."))
	}
	return lines
}

// isEdgeGroup reports whether the low group is the youngest or the oldest
// of the usable groups, by lexicographic group label.
func isEdgeGroup(groups []domain.SegmentScore, low domain.SegmentScore) bool {
	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Value
	}
	sort.Strings(labels)
	return low.Value == labels[0] || low.Value == labels[len(labels)-1]
}

func axisLabel(axis domain.SegmentAxis) string {
	switch axis {
	case domain.SegmentVisitType:
		return "Visit type"
	case domain.SegmentInsurance:
		return "Insurance"
	case domain.SegmentAgeGroup:
		return "Age group"
	case domain.SegmentGender:
		return "Gender"
	default:
		return string(axis)
	}
}
