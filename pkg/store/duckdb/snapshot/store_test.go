package snapshot

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{
		db:    db,
		store: store,
	}
}

func (f *fixture) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	_, err := f.db.Exec(query, args...)
	require.NoError(t, err)
}

func TestSnapshotStore_EmptyClinic(t *testing.T) {
	f := setupFixture(t)

	snap, err := f.store.BuildSnapshot(context.Background(), "clinic-a")
	require.NoError(t, err)

	assert.Equal(t, "clinic-a", snap.ClinicID)
	assert.Zero(t, snap.TotalResponses)
	assert.Empty(t, snap.QuestionScores)
	assert.Empty(t, snap.Comments)
	assert.NotNil(t, snap.TemplateCounts)
	assert.False(t, snap.BuiltAt.IsZero())
}

func TestSnapshotStore_BuildSnapshot(t *testing.T) {
	f := setupFixture(t)

	f.exec(t, `INSERT INTO clinic_overview VALUES ('clinic-a', 120, 4.2, 4.0, 80)`)
	f.exec(t, `INSERT INTO template_counts VALUES ('clinic-a', 'first', 40), ('clinic-a', 'revisit', 80)`)
	f.exec(t, `INSERT INTO question_scores VALUES
		('clinic-a', 'first', 'q1', 'Waiting time', 'waiting', 3.4, 20, 3.6, 18),
		('clinic-a', 'revisit', 'q2', 'Staff response', 'staff', 4.6, 60, 4.5, 55)`)
	f.exec(t, `INSERT INTO daily_scores VALUES
		('clinic-a', DATE '2025-05-01', 4, 4.1),
		('clinic-a', DATE '2025-05-02', 6, 4.3)`)
	f.exec(t, `INSERT INTO heatmap_cells VALUES ('clinic-a', 1, 10, 8, 4.4)`)
	f.exec(t, `INSERT INTO purpose_stats VALUES
		('clinic-a', '30d', 'purpose', 'checkup', 12, 4.5),
		('clinic-a', '90d', 'purpose', 'checkup', 30, 4.4),
		('clinic-a', '90d', 'insurance', 'insured', 70, 4.3),
		('clinic-a', '90d', 'insurance', 'self_pay', 20, 4.0),
		('clinic-a', 'prev90d', 'purpose', 'checkup', 25, 4.2)`)
	f.exec(t, `INSERT INTO response_comments VALUES
		('clinic-a', 'Friendly staff', 5, TIMESTAMP '2025-05-02 10:00:00'),
		('clinic-a', '   ', 3, TIMESTAMP '2025-05-02 11:00:00'),
		('clinic-a', 'Long wait', 2, TIMESTAMP '2025-05-01 09:00:00')`)
	f.exec(t, `INSERT INTO improvement_actions VALUES
		('act-1', 'clinic-a', 'Shorten waiting time', 'q1', 3.2, DATE '2025-04-01', 3.5, true),
		('act-2', 'clinic-a', 'Old action', 'q2', 4.0, DATE '2025-01-01', NULL, false)`)
	f.exec(t, `INSERT INTO score_histogram VALUES
		('clinic-a', 1, 2), ('clinic-a', 4, 30), ('clinic-a', 5, 60)`)
	f.exec(t, `INSERT INTO category_scores VALUES
		('clinic-a', 'waiting', 20, 3.4),
		('clinic-a', 'staff', 60, 4.6),
		('clinic-a', 'sparse', 2, 5.0)`)
	f.exec(t, `INSERT INTO monthly_metrics VALUES
		('clinic-a', DATE '2025-03-01', 400, 60, 20, 0.25),
		('clinic-a', DATE '2025-04-01', 420, 55, 25, 0.26)`)
	f.exec(t, `INSERT INTO monthly_scores VALUES
		('clinic-a', DATE '2025-03-01', 38, 4.1),
		('clinic-a', DATE '2025-04-01', 44, 4.3)`)
	f.exec(t, `INSERT INTO staff_scores VALUES
		('clinic-a', 's1', 'Dr. Lee', 'dentist', 40, 4.6),
		('clinic-a', 's2', 'Dr. Kim', 'dentist', 35, 4.1)`)
	f.exec(t, `INSERT INTO segment_scores VALUES
		('clinic-a', 'visit_type', 'first', 40, 4.0),
		('clinic-a', 'visit_type', 'revisit', 80, 4.3)`)
	f.exec(t, `INSERT INTO quality_stats VALUES ('clinic-a', 100, 30, 4.0, 70, 4.3, 45.0)`)

	// Another clinic's rows must not leak in.
	f.exec(t, `INSERT INTO clinic_overview VALUES ('clinic-b', 10, 3.0, 0, 0)`)
	f.exec(t, `INSERT INTO response_comments VALUES ('clinic-b', 'other clinic', 1, TIMESTAMP '2025-05-01 09:00:00')`)

	snap, err := f.store.BuildSnapshot(context.Background(), "clinic-a")
	require.NoError(t, err)

	assert.Equal(t, 120, snap.TotalResponses)
	assert.InDelta(t, 4.2, snap.AvgScore, 1e-9)
	assert.Equal(t, 80, snap.PrevPeriodCount)

	assert.Equal(t, map[string]int{"first": 40, "revisit": 80}, snap.TemplateCounts)

	require.Len(t, snap.QuestionScores, 2)
	assert.Equal(t, "waiting", snap.QuestionScores[0].Category)

	require.Len(t, snap.DailyTrend, 2)
	assert.True(t, snap.DailyTrend[0].Date.Before(snap.DailyTrend[1].Date))

	require.Len(t, snap.Heatmap, 1)
	assert.Equal(t, time.Monday, snap.Heatmap[0].Weekday)
	assert.Equal(t, 10, snap.Heatmap[0].Hour)

	require.Len(t, snap.PurposeStats30.Purposes, 1)
	require.Len(t, snap.PurposeStats90.Purposes, 1)
	require.Len(t, snap.PurposeStats90.Insurance, 2)
	require.Len(t, snap.PrevPurposeStats90.Purposes, 1)
	assert.InDelta(t, 4.2, snap.PrevPurposeStats90.Purposes[0].AvgScore, 1e-9)

	require.Len(t, snap.Comments, 2, "blank comments are filtered")
	assert.Equal(t, "Friendly staff", snap.Comments[0].Text, "newest first")

	require.Len(t, snap.ActiveActions, 1, "inactive actions are excluded")
	require.NotNil(t, snap.ActiveActions[0].CurrentScore)
	assert.InDelta(t, 3.5, *snap.ActiveActions[0].CurrentScore, 1e-9)

	assert.Equal(t, [5]int{2, 0, 0, 30, 60}, snap.ScoreHistogram)

	require.Len(t, snap.CategoryScores, 2, "categories below 5 samples are excluded")

	require.Len(t, snap.BusinessMetrics, 2)
	require.Len(t, snap.MonthlyScores, 2)
	assert.True(t, snap.MonthlyScores[0].Month.Before(snap.MonthlyScores[1].Month))

	require.Len(t, snap.StaffScores, 2)
	assert.Equal(t, "Dr. Lee", snap.StaffScores[0].Name)

	require.Len(t, snap.SegmentScores, 2)
	assert.Equal(t, domain.SegmentVisitType, snap.SegmentScores[0].Axis)

	assert.Equal(t, 100, snap.Quality.TaggedCount)
	assert.InDelta(t, 0.3, snap.Quality.FreeTextRate(), 1e-9)
}

func TestSnapshotStore_BusinessMetricsKeepNewestMonths(t *testing.T) {
	f := setupFixture(t)

	// 30 months on file, January 2023 through June 2025.
	month := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		f.exec(t, `INSERT INTO monthly_metrics VALUES (?, ?, ?, 50, 20, 0.25)`,
			"clinic-a", month, 400+i)
		month = month.AddDate(0, 1, 0)
	}

	snap, err := f.store.BuildSnapshot(context.Background(), "clinic-a")
	require.NoError(t, err)

	require.Len(t, snap.BusinessMetrics, 24)

	first := snap.BusinessMetrics[0]
	last := snap.BusinessMetrics[len(snap.BusinessMetrics)-1]
	assert.Equal(t, time.July, first.Month.Month(), "oldest months fall off the window")
	assert.Equal(t, 2023, first.Month.Year())
	assert.Equal(t, time.June, last.Month.Month(), "newest month must survive the cap")
	assert.Equal(t, 2025, last.Month.Year())
	assert.True(t, first.Month.Before(last.Month), "months stay ascending")
}
