package augment

import (
	"context"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

// SectionGenerator produces extra narrative sections from the snapshot and
// the rule-based sections. Implementations degrade silently: on any upstream
// failure they return an empty slice and a nil error, so a report is never
// blocked by the augmentation path.
type SectionGenerator interface {
	Generate(ctx context.Context, snap *domain.AnalysisSnapshot, sections []domain.AdvisorySection) ([]domain.AdvisorySection, error)
}

// Disabled is the no-op generator used when augmentation is turned off.
type Disabled struct{}

func (Disabled) Generate(_ context.Context, _ *domain.AnalysisSnapshot, _ []domain.AdvisorySection) ([]domain.AdvisorySection, error) {
	return nil, nil
}
