package analyzers

import (
	"fmt"
	"strings"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
)

// Analyzer produces at most one advisory section from a snapshot. A nil
// section means insufficient data or no finding; it is never an error.
// Analyzers are pure and independent of each other, so the engine may run
// them concurrently.
type Analyzer interface {
	Name() string
	Analyze(snap *domain.AnalysisSnapshot) *domain.AdvisorySection
}

// Ordered returns every rule-based analyzer in the fixed report order.
// The synthesized action section is appended separately and LLM sections,
// when present, are prepended ahead of all of these.
func Ordered(table *rules.Table) []Analyzer {
	return []Analyzer{
		Overall{},
		Strengths{},
		Patterns{Table: table},
		TemplateGap{Table: table},
		TimePattern{},
		Distribution{},
		Improvements{},
		ActionEffect{},
		Trend{},
		BusinessCorrelation{},
		Seasonality{},
		StaffPerformance{},
		CommentThemes{Table: table},
		PatientSegments{},
		PurposeDeepDive{},
		RetentionSignals{Table: table},
		Quality{},
	}
}

// Content markers consumed by the presentation layer.
const (
	warnMark   = "⚠ "
	arrowMark  = "→ "
	bulletMark = "• "
)

func bullet(format string, args ...any) string {
	return bulletMark + fmt.Sprintf(format, args...)
}

func warn(format string, args ...any) string {
	return warnMark + fmt.Sprintf(format, args...)
}

func arrow(format string, args ...any) string {
	return arrowMark + fmt.Sprintf(format, args...)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
