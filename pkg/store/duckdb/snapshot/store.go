package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
)

// Store assembles an AnalysisSnapshot from the aggregate tables maintained
// by the external aggregation job. Every table is optional; a clinic with
// sparse data yields a sparse snapshot and the analyzers gate themselves.
type Store interface {
	BuildSnapshot(ctx context.Context, clinicID string) (*domain.AnalysisSnapshot, error)
}

type snapshotStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &snapshotStore{db: db}, nil
}

const (
	windowCurrent30 = "30d"
	windowCurrent90 = "90d"
	windowPrev90    = "prev90d"

	dimPurpose   = "purpose"
	dimInsurance = "insurance"
)

func (s *snapshotStore) BuildSnapshot(ctx context.Context, clinicID string) (*domain.AnalysisSnapshot, error) {
	snap := &domain.AnalysisSnapshot{
		ClinicID: clinicID,
		BuiltAt:  time.Now().UTC(),
	}

	if err := s.loadOverview(ctx, clinicID, snap); err != nil {
		return nil, err
	}

	loaders := []func(context.Context, string, *domain.AnalysisSnapshot) error{
		s.loadTemplateCounts,
		s.loadQuestionScores,
		s.loadDailyTrend,
		s.loadHeatmap,
		s.loadPurposeStats,
		s.loadComments,
		s.loadActiveActions,
		s.loadHistogram,
		s.loadCategoryScores,
		s.loadBusinessMetrics,
		s.loadMonthlyScores,
		s.loadStaffScores,
		s.loadSegmentScores,
		s.loadQuality,
	}
	for _, load := range loaders {
		if err := load(ctx, clinicID, snap); err != nil {
			return nil, err
		}
	}

	return snap, nil
}

func (s *snapshotStore) loadOverview(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT total_responses, avg_score, prev_avg_score, prev_period_count
		FROM clinic_overview
		WHERE clinic_id = ?
	`
	err := s.db.QueryRowContext(ctx, query, clinicID).Scan(
		&snap.TotalResponses, &snap.AvgScore, &snap.PrevAvgScore, &snap.PrevPeriodCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load clinic overview: %w", err)
	}
	return nil
}

func (s *snapshotStore) loadTemplateCounts(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	snap.TemplateCounts = make(map[string]int)
	query := `SELECT template_id, n FROM template_counts WHERE clinic_id = ?`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		snap.TemplateCounts[id] = n
		return nil
	})
}

func (s *snapshotStore) loadQuestionScores(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT template_id, question_id, label, COALESCE(category, ''), score, n, prev_score, prev_n
		FROM question_scores
		WHERE clinic_id = ?
		ORDER BY template_id, question_id
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var q domain.QuestionScore
		if err := rows.Scan(&q.TemplateID, &q.QuestionID, &q.Label, &q.Category, &q.Score, &q.Count, &q.PrevScore, &q.PrevCount); err != nil {
			return err
		}
		snap.QuestionScores = append(snap.QuestionScores, q)
		return nil
	})
}

func (s *snapshotStore) loadDailyTrend(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT day, n, avg_score
		FROM daily_scores
		WHERE clinic_id = ?
		ORDER BY day ASC
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var d domain.DailyScore
		if err := rows.Scan(&d.Date, &d.Count, &d.AvgScore); err != nil {
			return err
		}
		snap.DailyTrend = append(snap.DailyTrend, d)
		return nil
	})
}

func (s *snapshotStore) loadHeatmap(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT weekday, hour, n, avg_score
		FROM heatmap_cells
		WHERE clinic_id = ?
		ORDER BY weekday, hour
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var (
			cell    domain.HeatmapCell
			weekday int
		)
		if err := rows.Scan(&weekday, &cell.Hour, &cell.Count, &cell.AvgScore); err != nil {
			return err
		}
		cell.Weekday = time.Weekday(weekday)
		snap.Heatmap = append(snap.Heatmap, cell)
		return nil
	})
}

func (s *snapshotStore) loadPurposeStats(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT win, dim, grp, n, avg_score
		FROM purpose_stats
		WHERE clinic_id = ?
		ORDER BY win, dim, grp
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var (
			win, dim string
			g        domain.GroupScore
		)
		if err := rows.Scan(&win, &dim, &g.Key, &g.Count, &g.AvgScore); err != nil {
			return err
		}

		var stats *domain.SatisfactionStats
		switch win {
		case windowCurrent30:
			stats = &snap.PurposeStats30
		case windowCurrent90:
			stats = &snap.PurposeStats90
		case windowPrev90:
			stats = &snap.PrevPurposeStats90
		default:
			return nil
		}

		switch dim {
		case dimPurpose:
			stats.Purposes = append(stats.Purposes, g)
		case dimInsurance:
			stats.Insurance = append(stats.Insurance, g)
		}
		return nil
	})
}

func (s *snapshotStore) loadComments(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT body, score, created_at
		FROM response_comments
		WHERE clinic_id = ? AND length(trim(body)) > 0
		ORDER BY created_at DESC
		LIMIT 50
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var c domain.Comment
		if err := rows.Scan(&c.Text, &c.Score, &c.CreatedAt); err != nil {
			return err
		}
		snap.Comments = append(snap.Comments, c)
		return nil
	})
}

func (s *snapshotStore) loadActiveActions(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT id, title, question_id, baseline_score, start_date, current_score
		FROM improvement_actions
		WHERE clinic_id = ? AND active
		ORDER BY start_date ASC
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var (
			a       domain.ImprovementAction
			current sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.QuestionID, &a.BaselineScore, &a.StartDate, &current); err != nil {
			return err
		}
		if current.Valid {
			v := current.Float64
			a.CurrentScore = &v
		}
		snap.ActiveActions = append(snap.ActiveActions, a)
		return nil
	})
}

func (s *snapshotStore) loadHistogram(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `SELECT score, n FROM score_histogram WHERE clinic_id = ?`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var score, n int
		if err := rows.Scan(&score, &n); err != nil {
			return err
		}
		if score >= 1 && score <= 5 {
			snap.ScoreHistogram[score-1] = n
		}
		return nil
	})
}

func (s *snapshotStore) loadCategoryScores(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT category, n, avg_score
		FROM category_scores
		WHERE clinic_id = ? AND n >= 5
		ORDER BY category
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var c domain.CategoryScore
		if err := rows.Scan(&c.Category, &c.Count, &c.AvgScore); err != nil {
			return err
		}
		snap.CategoryScores = append(snap.CategoryScores, c)
		return nil
	})
}

func (s *snapshotStore) loadBusinessMetrics(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	// Newest 24 months, re-sorted ascending so the tail of the slice is the
	// most recent month.
	query := `
		SELECT month, visits, first_visits, cancels, self_pay_rate
		FROM (
			SELECT month, visits, first_visits, cancels, self_pay_rate
			FROM monthly_metrics
			WHERE clinic_id = ?
			ORDER BY month DESC
			LIMIT 24
		)
		ORDER BY month ASC
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var m domain.MonthlyMetrics
		if err := rows.Scan(&m.Month, &m.Visits, &m.FirstVisits, &m.Cancels, &m.SelfPayRate); err != nil {
			return err
		}
		snap.BusinessMetrics = append(snap.BusinessMetrics, m)
		return nil
	})
}

func (s *snapshotStore) loadMonthlyScores(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT month, n, avg_score
		FROM monthly_scores
		WHERE clinic_id = ?
		ORDER BY month ASC
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var m domain.MonthlyScore
		if err := rows.Scan(&m.Month, &m.Count, &m.AvgScore); err != nil {
			return err
		}
		snap.MonthlyScores = append(snap.MonthlyScores, m)
		return nil
	})
}

func (s *snapshotStore) loadStaffScores(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT staff_id, name, role, n, avg_score
		FROM staff_scores
		WHERE clinic_id = ?
		ORDER BY avg_score DESC
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var st domain.StaffScore
		if err := rows.Scan(&st.StaffID, &st.Name, &st.Role, &st.Count, &st.AvgScore); err != nil {
			return err
		}
		snap.StaffScores = append(snap.StaffScores, st)
		return nil
	})
}

func (s *snapshotStore) loadSegmentScores(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT axis, grp, n, avg_score
		FROM segment_scores
		WHERE clinic_id = ?
		ORDER BY axis, grp
	`
	return s.each(ctx, query, clinicID, func(rows *sql.Rows) error {
		var (
			seg  domain.SegmentScore
			axis string
		)
		if err := rows.Scan(&axis, &seg.Value, &seg.Count, &seg.AvgScore); err != nil {
			return err
		}
		seg.Axis = domain.SegmentAxis(axis)
		snap.SegmentScores = append(snap.SegmentScores, seg)
		return nil
	})
}

func (s *snapshotStore) loadQuality(ctx context.Context, clinicID string, snap *domain.AnalysisSnapshot) error {
	query := `
		SELECT tagged_count, texted_count, texted_avg, untexted_count, untexted_avg, avg_duration_secs
		FROM quality_stats
		WHERE clinic_id = ?
	`
	err := s.db.QueryRowContext(ctx, query, clinicID).Scan(
		&snap.Quality.TaggedCount,
		&snap.Quality.TextedCount,
		&snap.Quality.TextedAvg,
		&snap.Quality.UntextedCount,
		&snap.Quality.UntextedAvg,
		&snap.Quality.AvgDurationSecs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load quality stats: %w", err)
	}
	return nil
}

func (s *snapshotStore) each(ctx context.Context, query, clinicID string, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, clinicID)
	if err != nil {
		return fmt.Errorf("query snapshot data: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan snapshot row: %w", err)
		}
	}
	return rows.Err()
}
