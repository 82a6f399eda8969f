package analyzers

import (
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

const (
	actionEffectiveDelta = 0.3
	actionImprovingDelta = 0.1
	actionNoChangeFloor  = -0.1
)

// ActionEffect reports how each active improvement action is performing
// against its baseline score.
type ActionEffect struct{}

func (ActionEffect) Name() string { return "action_effect" }

// EffectBucket classifies an action's score movement since its baseline.
type EffectBucket string

const (
	EffectEffective EffectBucket = "effective"
	EffectImproving EffectBucket = "improving"
	EffectNoChange  EffectBucket = "no change"
	EffectWorsening EffectBucket = "worsening"
)

// BucketEffect maps a score delta onto its effect bucket.
func BucketEffect(delta float64) EffectBucket {
	switch {
	case delta >= actionEffectiveDelta:
		return EffectEffective
	case delta >= actionImprovingDelta:
		return EffectImproving
	case delta > actionNoChangeFloor:
		return EffectNoChange
	default:
		return EffectWorsening
	}
}

func (ActionEffect) Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection {
	if len(snap.ActiveActions) == 0 {
		return nil
	}

	var lines []string
	for _, a := range snap.ActiveActions {
		days := int(snap.BuiltAt.Sub(a.StartDate) / (24 * time.Hour))
		if a.CurrentScore == nil {
			lines = append(lines, bullet(
				"%q (running %d days): the target question has no recent responses, so the effect cannot be measured yet. Keep collecting.",
				a.Title, days))
			continue
		}

		delta := *a.CurrentScore - a.BaselineScore
		switch BucketEffect(delta) {
		case EffectEffective:
			lines = append(lines, arrow(
				"%q is effective: %.1f to %.1f (%+.2f) after %d days.",
				a.Title, a.BaselineScore, *a.CurrentScore, delta, days))
		case EffectImproving:
			lines = append(lines, bullet(
				"%q is improving: %.1f to %.1f (%+.2f) after %d days.",
				a.Title, a.BaselineScore, *a.CurrentScore, delta, days))
		case EffectNoChange:
			lines = append(lines, bullet(
				"%q shows no measurable change yet (%.1f to %.1f after %d days).",
				a.Title, a.BaselineScore, *a.CurrentScore, days))
		default:
			lines = append(lines, warn(
				"%q is trending the wrong way: %.1f to %.1f (%+.2f) after %d days. Reconsider the approach.",
				a.Title, a.BaselineScore, *a.CurrentScore, delta, days))
		}
	}

	return &domain.AdvisorySection{
		Title:   "Improvement Action Progress",
		Content: joinLines(lines),
		Type:    domain.SectionActionEffect,
	}
}
