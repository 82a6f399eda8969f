package augment

import (
	"fmt"
	"math"
	"sort"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

const (
	maxWeakSlots        = 3
	maxSegmentGaps      = 8
	maxNegativeComments = 10
	maxPositiveComments = 5

	segmentGapFloor = 0.15
)

// payload is the curated slice of the snapshot sent to the model. It is
// deliberately small: raw response rows never leave the engine.
type payload struct {
	ClinicID       string            `json:"clinic_id"`
	TotalResponses int               `json:"total_responses"`
	AvgScore       float64           `json:"avg_score"`
	PrevAvgScore   float64           `json:"prev_avg_score,omitempty"`
	Questions      []questionDelta   `json:"questions,omitempty"`
	WeakSlots      []string          `json:"weak_time_slots,omitempty"`
	Actions        []actionEffect    `json:"improvement_actions,omitempty"`
	Business       string            `json:"business_summary,omitempty"`
	SegmentGaps    []segmentGap      `json:"segment_gaps,omitempty"`
	Negative       []string          `json:"negative_comments,omitempty"`
	Positive       []string          `json:"positive_comments,omitempty"`
	Sections       []existingSection `json:"existing_sections"`
}

type questionDelta struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Delta float64 `json:"delta"`
	Count int     `json:"count"`
}

type actionEffect struct {
	Title    string   `json:"title"`
	Baseline float64  `json:"baseline"`
	Current  *float64 `json:"current,omitempty"`
}

type segmentGap struct {
	Axis  string  `json:"axis"`
	Value string  `json:"value"`
	Score float64 `json:"score"`
	Gap   float64 `json:"gap"`
}

type existingSection struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

func buildPayload(snap *domain.AnalysisSnapshot, sections []domain.AdvisorySection) payload {
	p := payload{
		ClinicID:       snap.ClinicID,
		TotalResponses: snap.TotalResponses,
		AvgScore:       snap.AvgScore,
	}
	if snap.PrevPeriodCount > 0 {
		p.PrevAvgScore = snap.PrevAvgScore
	}

	for _, q := range snap.QuestionScores {
		delta := 0.0
		if q.PrevCount > 0 {
			delta = q.Score - q.PrevScore
		}
		p.Questions = append(p.Questions, questionDelta{
			Label: q.Label,
			Score: q.Score,
			Delta: delta,
			Count: q.Count,
		})
	}

	p.WeakSlots = weakSlots(snap)
	for _, a := range snap.ActiveActions {
		p.Actions = append(p.Actions, actionEffect{Title: a.Title, Baseline: a.BaselineScore, Current: a.CurrentScore})
	}
	p.Business = businessSummary(snap.BusinessMetrics)
	p.SegmentGaps = segmentGaps(snap)
	p.Negative, p.Positive = splitComments(snap.Comments)

	for _, s := range sections {
		p.Sections = append(p.Sections, existingSection{Title: s.Title, Type: string(s.Type)})
	}
	return p
}

func weakSlots(snap *domain.AnalysisSnapshot) []string {
	cells := make([]domain.HeatmapCell, 0, len(snap.Heatmap))
	for _, c := range snap.Heatmap {
		if c.Count >= 3 {
			cells = append(cells, c)
		}
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].AvgScore < cells[j].AvgScore })

	slots := make([]string, 0, maxWeakSlots)
	for _, c := range cells {
		if len(slots) == maxWeakSlots {
			break
		}
		slots = append(slots, fmt.Sprintf("%s %02d:00 (%.1f, n=%d)", c.Weekday, c.Hour, c.AvgScore, c.Count))
	}
	return slots
}

func businessSummary(metrics []domain.MonthlyMetrics) string {
	if len(metrics) == 0 {
		return ""
	}
	recent := metrics
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	summary := ""
	for i, m := range recent {
		if i > 0 {
			summary += "; "
		}
		summary += fmt.Sprintf("%s: %d visits, %.0f%% cancels, %.0f%% first visits",
			m.Month.Format("2006-01"), m.Visits, m.CancelRate()*100, m.FirstVisitRate()*100)
	}
	return summary
}

func segmentGaps(snap *domain.AnalysisSnapshot) []segmentGap {
	totals := make(map[domain.SegmentAxis]struct {
		weighted float64
		count    int
	})
	for _, s := range snap.SegmentScores {
		t := totals[s.Axis]
		t.weighted += s.AvgScore * float64(s.Count)
		t.count += s.Count
		totals[s.Axis] = t
	}

	var gaps []segmentGap
	for _, s := range snap.SegmentScores {
		t := totals[s.Axis]
		if t.count == 0 {
			continue
		}
		mean := t.weighted / float64(t.count)
		gap := s.AvgScore - mean
		if math.Abs(gap) >= segmentGapFloor {
			gaps = append(gaps, segmentGap{Axis: string(s.Axis), Value: s.Value, Score: s.AvgScore, Gap: gap})
		}
	}

	sort.Slice(gaps, func(i, j int) bool { return math.Abs(gaps[i].Gap) > math.Abs(gaps[j].Gap) })
	if len(gaps) > maxSegmentGaps {
		gaps = gaps[:maxSegmentGaps]
	}
	return gaps
}

func splitComments(comments []domain.Comment) (negative, positive []string) {
	for _, c := range comments {
		switch {
		case c.Score <= 2 && len(negative) < maxNegativeComments:
			negative = append(negative, c.Text)
		case c.Score >= 4 && len(positive) < maxPositiveComments:
			positive = append(positive, c.Text)
		}
	}
	return negative, positive
}
