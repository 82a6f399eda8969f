package advisory

import (
	"strings"
	"testing"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(offset int) time.Time {
	return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset, 0)
}

// quietSnapshot has enough business history to silence the track-metrics
// heuristic and nothing else to recommend.
func quietSnapshot() *domain.AnalysisSnapshot {
	return &domain.AnalysisSnapshot{
		ClinicID: "clinic-a",
		AvgScore: 4.5,
		BusinessMetrics: []domain.MonthlyMetrics{
			{Month: month(0), Visits: 400},
			{Month: month(1), Visits: 410},
			{Month: month(2), Visits: 420},
		},
	}
}

func TestSynthesizer_Fallback(t *testing.T) {
	s := NewSynthesizer(rules.Default())

	section, priority := s.Synthesize(quietSnapshot(), nil)

	assert.Equal(t, domain.SectionAction, section.Type)
	assert.Nil(t, priority, "fallback carries no priority")
	assert.Contains(t, section.Content, "1. No urgent issues")
	assert.Equal(t, 1, strings.Count(section.Content, "\n")+1, "fallback is a single item")
}

func TestSynthesizer_StartVsQueueAction(t *testing.T) {
	s := NewSynthesizer(rules.Default())

	snap := quietSnapshot()
	snap.QuestionScores = []domain.QuestionScore{
		{QuestionID: "q1", Label: "waiting time", Score: 3.2, Count: 10},
	}

	t.Run("no active actions starts one", func(t *testing.T) {
		section, priority := s.Synthesize(snap, nil)
		require.NotNil(t, priority)
		assert.Equal(t, 1, *priority)
		assert.Contains(t, section.Content, "Start an improvement action")
		assert.Contains(t, section.Content, "waiting time")
	})

	t.Run("existing action queues instead", func(t *testing.T) {
		withAction := *snap
		withAction.ActiveActions = []domain.ImprovementAction{
			{ID: "a1", Title: "Other work", QuestionID: "q9", BaselineScore: 3.0},
		}
		section, priority := s.Synthesize(&withAction, nil)
		require.NotNil(t, priority)
		assert.Equal(t, 2, *priority)
		assert.Contains(t, section.Content, "Queue")
	})

	t.Run("already targeted question is skipped", func(t *testing.T) {
		targeted := *snap
		targeted.ActiveActions = []domain.ImprovementAction{
			{ID: "a1", Title: "Fix waiting", QuestionID: "q1", BaselineScore: 3.2},
		}
		section, _ := s.Synthesize(&targeted, nil)
		assert.NotContains(t, section.Content, "Queue")
		assert.NotContains(t, section.Content, "Start an improvement action")
	})
}

func TestSynthesizer_PriorityOrdering(t *testing.T) {
	s := NewSynthesizer(rules.Default())

	snap := quietSnapshot()
	// Fires ask-reviews (priority 6).
	for i := 0; i < 5; i++ {
		snap.Comments = append(snap.Comments, domain.Comment{Text: "great", Score: 5})
	}
	// Fires negative-voices (priority 4).
	for i := 0; i < 3; i++ {
		snap.Comments = append(snap.Comments, domain.Comment{Text: "bad", Score: 1})
	}
	// Fires start-action (priority 1).
	snap.QuestionScores = []domain.QuestionScore{
		{QuestionID: "q1", Label: "cost clarity", Score: 3.0, Count: 5},
	}

	section, priority := s.Synthesize(snap, nil)
	require.NotNil(t, priority)
	assert.Equal(t, 1, *priority)

	lines := strings.Split(section.Content, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "1. Start an improvement action"))
	assert.Contains(t, lines[1], "low-score comments")
	assert.Contains(t, lines[2], "public reviews")
}

func TestSynthesizer_SectionDrivenHeuristics(t *testing.T) {
	s := NewSynthesizer(rules.Default())

	sections := []domain.AdvisorySection{
		{Title: "Time Patterns", Type: domain.SectionTimePattern},
		{Title: "Patient Segments", Type: domain.SectionSegment},
	}
	section, priority := s.Synthesize(quietSnapshot(), sections)

	require.NotNil(t, priority)
	assert.Equal(t, 5, *priority)
	assert.Contains(t, section.Content, "weak time slots")
	assert.Contains(t, section.Content, "patient segment")
}

func TestSynthesizer_StuckAction(t *testing.T) {
	s := NewSynthesizer(rules.Default())

	current := 3.25
	snap := quietSnapshot()
	snap.ActiveActions = []domain.ImprovementAction{
		{ID: "a1", Title: "Shorten waiting", QuestionID: "q1", BaselineScore: 3.2, CurrentScore: &current},
	}

	section, priority := s.Synthesize(snap, nil)
	require.NotNil(t, priority)
	assert.Equal(t, 3, *priority)
	assert.Contains(t, section.Content, "has not moved its target score")
}

func TestSynthesizer_TrackMetrics(t *testing.T) {
	s := NewSynthesizer(rules.Default())

	snap := quietSnapshot()
	snap.BusinessMetrics = snap.BusinessMetrics[:2]

	section, priority := s.Synthesize(snap, nil)
	require.NotNil(t, priority)
	assert.Equal(t, 7, *priority)
	assert.Contains(t, section.Content, "Backfill visit and cancellation numbers")
}
