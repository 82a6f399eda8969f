package augment

import (
	"context"
	"testing"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayload_Curation(t *testing.T) {
	snap := &domain.AnalysisSnapshot{
		ClinicID:        "clinic-a",
		TotalResponses:  120,
		AvgScore:        4.2,
		PrevAvgScore:    4.0,
		PrevPeriodCount: 80,
		QuestionScores: []domain.QuestionScore{
			{Label: "Waiting time", Score: 3.4, PrevScore: 3.6, PrevCount: 18, Count: 20},
			{Label: "Staff response", Score: 4.6, PrevCount: 0, Count: 60},
		},
		Heatmap: []domain.HeatmapCell{
			{Weekday: time.Monday, Hour: 10, Count: 8, AvgScore: 3.2},
			{Weekday: time.Tuesday, Hour: 11, Count: 8, AvgScore: 3.5},
			{Weekday: time.Wednesday, Hour: 12, Count: 8, AvgScore: 3.6},
			{Weekday: time.Thursday, Hour: 13, Count: 8, AvgScore: 3.7},
			{Weekday: time.Friday, Hour: 14, Count: 2, AvgScore: 1.0}, // below sample floor
		},
	}

	p := buildPayload(snap, []domain.AdvisorySection{
		{Title: "Overall Assessment", Type: domain.SectionSummary},
	})

	assert.InDelta(t, 4.0, p.PrevAvgScore, 1e-9)

	require.Len(t, p.Questions, 2)
	assert.InDelta(t, -0.2, p.Questions[0].Delta, 1e-9)
	assert.Zero(t, p.Questions[1].Delta, "no previous data means no delta")

	require.Len(t, p.WeakSlots, 3, "weak slots are capped")
	assert.Contains(t, p.WeakSlots[0], "Monday")
	for _, slot := range p.WeakSlots {
		assert.NotContains(t, slot, "Friday", "thin cells are excluded")
	}

	require.Len(t, p.Sections, 1)
	assert.Equal(t, "summary", p.Sections[0].Type)
}

func TestSegmentGaps(t *testing.T) {
	snap := &domain.AnalysisSnapshot{
		SegmentScores: []domain.SegmentScore{
			{Axis: domain.SegmentInsurance, Value: "insured", Count: 50, AvgScore: 4.4},
			{Axis: domain.SegmentInsurance, Value: "self_pay", Count: 50, AvgScore: 4.0},
			{Axis: domain.SegmentGender, Value: "f", Count: 50, AvgScore: 4.21},
			{Axis: domain.SegmentGender, Value: "m", Count: 50, AvgScore: 4.19},
		},
	}

	gaps := segmentGaps(snap)
	require.Len(t, gaps, 2, "gaps under the floor are dropped")
	assert.Equal(t, "insured", gaps[0].Value)
	assert.InDelta(t, 0.2, gaps[0].Gap, 1e-9)
}

func TestSplitComments_Caps(t *testing.T) {
	var comments []domain.Comment
	for i := 0; i < 15; i++ {
		comments = append(comments, domain.Comment{Text: "bad", Score: 1})
	}
	for i := 0; i < 8; i++ {
		comments = append(comments, domain.Comment{Text: "good", Score: 5})
	}
	comments = append(comments, domain.Comment{Text: "meh", Score: 3})

	negative, positive := splitComments(comments)
	assert.Len(t, negative, maxNegativeComments)
	assert.Len(t, positive, maxPositiveComments)
}

func TestParseSections(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		sections, err := parseSections(`[{"title":"Theme","content":"Observation."}]`)
		require.NoError(t, err)
		require.Len(t, sections, 1)
		assert.Equal(t, domain.SectionLLM, sections[0].Type)
	})

	t.Run("code fence stripped", func(t *testing.T) {
		sections, err := parseSections("```json\n[{\"title\":\"T\",\"content\":\"C\"}]\n```")
		require.NoError(t, err)
		assert.Len(t, sections, 1)
	})

	t.Run("empty fields dropped", func(t *testing.T) {
		sections, err := parseSections(`[{"title":"","content":"C"},{"title":"T","content":""}]`)
		require.NoError(t, err)
		assert.Empty(t, sections)
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := parseSections(`{"title":"T"}`)
		assert.Error(t, err)
	})
}

func TestDisabledGeneratesNothing(t *testing.T) {
	sections, err := Disabled{}.Generate(context.Background(), &domain.AnalysisSnapshot{}, nil)
	require.NoError(t, err)
	assert.Empty(t, sections)
}
