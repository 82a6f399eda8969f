package analyzers

import (
	"sort"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
	"golang.org/x/exp/maps"
)

const (
	seasonalityMinMonths = 6
	yoyMinSamples        = 10
	bucketMinMonths      = 12
	seasonGapFlag        = 0.2
	volumeSeasonRatio    = 1.5
)

// Seasonality compares the same calendar month year over year and looks for
// recurring strong and weak months.
type Seasonality struct{}

func (Seasonality) Name() string { return "seasonality" }

func (Seasonality) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	if len(snap.MonthlyScores) < seasonalityMinMonths {
		return nil
	}

	var lines []string
	lines = append(lines, yoyScoreFinding(snap.MonthlyScores)...)
	lines = append(lines, yoyVisitFinding(snap.BusinessMetrics)...)

	if low, high, ok := seasonBuckets(snap.MonthlyScores); ok {
		lines = append(lines, warn(
			"%s is your recurring weak month (%.1f) while %s is the strongest (%.1f).%s",
			low.month, low.score, high.month, high.score, monthContext(low.month)))
	}

	if lowM, highM, ratio, ok := volumeSeason(snap.MonthlyScores); ok {
		lines = append(lines, bullet(
			"Response volume is seasonal too: %s collects %.1fx the responses of %s.",
			highM, ratio, lowM))
	}

	if len(lines) == 0 {
		return nil
	}

	return &domain.AdvisorySection{
		Title:   "Seasonal Patterns",
		Content: joinLines(lines),
		Type:    domain.SectionSeasonality,
	}
}

func yoyScoreFinding(scores []domain.MonthlyScore) []string {
	latest := scores[len(scores)-1]
	for _, s := range scores {
		if s.Month.Month() == latest.Month.Month() &&
			s.Month.Year() == latest.Month.Year()-1 &&
			s.Count >= yoyMinSamples {
			delta := latest.AvgScore - s.AvgScore
			if delta >= 0 {
				return []string{bullet("Compared with %s last year, satisfaction is %+.2f.",
					latest.Month.Month(), delta)}
			}
			return []string{warn("Compared with %s last year, satisfaction is %+.2f.",
				latest.Month.Month(), delta)}
		}
	}
	return nil
}

func yoyVisitFinding(metrics []domain.MonthlyMetrics) []string {
	if len(metrics) == 0 {
		return nil
	}
	latest := metrics[len(metrics)-1]
	for _, m := range metrics {
		if m.Month.Month() == latest.Month.Month() &&
			m.Month.Year() == latest.Month.Year()-1 &&
			m.Visits > 0 {
			diff := latest.Visits - m.Visits
			return []string{bullet("Visits in %s: %d, versus %d the same month last year (%+d).",
				latest.Month.Month(), latest.Visits, m.Visits, diff)}
		}
	}
	return nil
}

type seasonBucket struct {
	month time.Month
	score float64
}

func seasonBuckets(scores []domain.MonthlyScore) (low, high seasonBucket, ok bool) {
	if len(scores) < bucketMinMonths {
		return low, high, false
	}

	byMonth := map[time.Month][]stats.WeightedScore{}
	for _, s := range scores {
		byMonth[s.Month.Month()] = append(byMonth[s.Month.Month()],
			stats.WeightedScore{Score: s.AvgScore, Count: s.Count})
	}

	// Sorted iteration keeps the picked months stable when scores tie.
	months := maps.Keys(byMonth)
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	first := true
	for _, m := range months {
		avg, okAvg := stats.WeightedAverage(byMonth[m])
		if !okAvg {
			continue
		}
		b := seasonBucket{month: m, score: avg}
		if first {
			low, high = b, b
			first = false
			continue
		}
		if b.score < low.score {
			low = b
		}
		if b.score > high.score {
			high = b
		}
	}
	if first || high.score-low.score < seasonGapFlag {
		return low, high, false
	}
	return low, high, true
}

// LowSeasonMonth exposes the recurring weak month to the synthesizer.
func LowSeasonMonth(snap *domain.AnalysisSnapshot) (time.Month, bool) {
	if len(snap.MonthlyScores) < seasonalityMinMonths {
		return 0, false
	}
	low, _, ok := seasonBuckets(snap.MonthlyScores)
	return low.month, ok
}

func volumeSeason(scores []domain.MonthlyScore) (lowM, highM time.Month, ratio float64, ok bool) {
	counts := map[time.Month][]int{}
	for _, s := range scores {
		counts[s.Month.Month()] = append(counts[s.Month.Month()], s.Count)
	}
	if len(counts) < 2 {
		return 0, 0, 0, false
	}

	months := maps.Keys(counts)
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	first := true
	var lowAvg, highAvg float64
	for _, m := range months {
		cs := counts[m]
		total := 0
		for _, c := range cs {
			total += c
		}
		avg := float64(total) / float64(len(cs))
		if first {
			lowM, highM, lowAvg, highAvg = m, m, avg, avg
			first = false
			continue
		}
		if avg < lowAvg {
			lowM, lowAvg = m, avg
		}
		if avg > highAvg {
			highM, highAvg = m, avg
		}
	}
	if lowAvg == 0 || highAvg <= volumeSeasonRatio*lowAvg {
		return 0, 0, 0, false
	}
	return lowM, highM, highAvg / lowAvg, true
}

// monthContext adds the dental-calendar context for known seasonal months.
func monthContext(m time.Month) string {
	switch m {
	case time.December, time.January:
		return " Year-end and new-year rush typically strains scheduling; plan extra slack."
	case time.June, time.July, time.August:
		return " Summer brings schedule churn from holidays; confirm appointments earlier."
	case time.March, time.April:
		return " Spring relocations bring more first visits; review your new-patient flow."
	default:
		return ""
	}
}
