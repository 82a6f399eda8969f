package analyzers

import (
	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/stats"
)

const (
	qualityMinTagged    = 10
	textedGapFlag       = 0.2
	freeTextRateFloor   = 0.15
	lowEffortSecs       = 15
	tooLongSecs         = 120
	unevenCVFloor       = 1.0
	stableCVCeil        = 0.4
	stableMinDailyCount = 3.0
	fiveShareBiasFloor  = 0.70
	oneShareWarnFloor   = 0.10
)

// Quality examines how the survey itself is being answered: free-text
// rates, answer duration, volume evenness and score-concentration bias.
type Quality struct{}

func (Quality) Name() string { return "quality" }

// FiveShare returns the share of responses scoring a straight 5.
func FiveShare(hist [5]int) float64 {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 0
	}
	return float64(hist[4]) / float64(total)
}

// BiasFlagged reports whether straight-5 responses dominate enough to
// suggest social desirability bias. Shared with the synthesizer.
func BiasFlagged(snap *domain.AnalysisSnapshot) bool {
	return FiveShare(snap.ScoreHistogram) >= fiveShareBiasFloor
}

func (Quality) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	q := snap.Quality
	if q.TaggedCount < qualityMinTagged {
		return nil
	}

	var lines []string

	if q.TextedCount > 0 && q.UntextedCount > 0 {
		gap := q.TextedAvg - q.UntextedAvg
		if gap <= -textedGapFlag {
			lines = append(lines, bullet(
				"Patients who write comments score %.2f lower (%.1f vs %.1f). Written feedback is where your problems surface first.",
				-gap, q.TextedAvg, q.UntextedAvg))
		} else if gap >= textedGapFlag {
			lines = append(lines, bullet(
				"Patients who write comments score %.2f higher (%.1f vs %.1f). Your critics stay silent; low scores without text deserve follow-up questions.",
				gap, q.TextedAvg, q.UntextedAvg))
		}
	}

	if q.FreeTextRate() < freeTextRateFloor {
		lines = append(lines, bullet(
			"Only %.0f%% of responses include a comment. A short prompt under the score question (\"what made the difference today?\") raises this reliably.",
			q.FreeTextRate()*100))
	}

	if q.AvgDurationSecs > 0 {
		if q.AvgDurationSecs < lowEffortSecs {
			lines = append(lines, warn(
				"Surveys are answered in %.0f seconds on average. Patients are clicking through; shorter surveys with fewer questions get more honest answers.",
				q.AvgDurationSecs))
		} else if q.AvgDurationSecs > tooLongSecs {
			lines = append(lines, bullet(
				"Surveys take %.0f seconds on average, long enough to depress completion. Consider trimming optional questions.",
				q.AvgDurationSecs))
		}
	}

	if line := volumeEvenness(snap.DailyTrend); line != "" {
		lines = append(lines, line)
	}

	total := 0
	for _, c := range snap.ScoreHistogram {
		total += c
	}
	if total > 0 {
		if FiveShare(snap.ScoreHistogram) >= fiveShareBiasFloor {
			lines = append(lines, bullet(
				"%.0f%% of responses are a straight 5. Some of that is social desirability, especially when staff hand over the survey. Treat the average as an upper bound.",
				FiveShare(snap.ScoreHistogram)*100))
		}
		if oneShare := float64(snap.ScoreHistogram[0]) / float64(total); oneShare >= oneShareWarnFloor {
			lines = append(lines, warn(
				"%.0f%% of responses are the minimum score. That is a notable pocket of dissatisfaction, not noise.",
				oneShare*100))
		}
	}

	if len(lines) == 0 {
		return nil
	}

	return &domain.AdvisorySection{
		Title:   "Response Quality",
		Content: joinLines(lines),
		Type:    domain.SectionQuality,
	}
}

// volumeEvenness flags spiky or reassuringly steady daily response counts
// using the coefficient of variation.
func volumeEvenness(trend []domain.DailyScore) string {
	if len(trend) == 0 {
		return ""
	}
	counts := make([]float64, len(trend))
	var sum float64
	for i, d := range trend {
		counts[i] = float64(d.Count)
		sum += float64(d.Count)
	}
	mean := sum / float64(len(counts))
	if mean == 0 {
		return ""
	}
	cv := stats.StdDev(counts) / mean

	switch {
	case cv > unevenCVFloor:
		return bullet(
			"Responses arrive in bursts rather than steadily. If surveys are handed out only on some days, quieter days go unmeasured.")
	case cv < stableCVCeil && mean >= stableMinDailyCount:
		return bullet("Response collection is steady day to day. The data here is trustworthy.")
	default:
		return ""
	}
}
