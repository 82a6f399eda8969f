package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clinic-tools/advisory-engine/pkg/models/store"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb"
)

var ErrNotFound = errors.New("advisory report not found")

type Store interface {
	Add(ctx context.Context, report store.AdvisoryReport) error
	GetLatest(ctx context.Context, clinicID string) (*store.AdvisoryReport, error)
	List(ctx context.Context, clinicID string, limit int) ([]store.AdvisoryReport, error)
}

type reportStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &reportStore{db: db}, nil
}

// Add persists a finished report. Sections are stored as a JSON array so a
// report round-trips without a schema change when section types evolve.
// Joins a context-bound transaction when present.
func (r *reportStore) Add(ctx context.Context, report store.AdvisoryReport) error {
	sections, err := json.Marshal(report.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	query := `
		INSERT INTO advisory_reports (
			id, clinic_id, trigger_type, response_count, sections, summary, priority, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []any{
		report.ID,
		report.ClinicID,
		report.TriggerType,
		report.ResponseCount,
		string(sections),
		report.Summary,
		report.Priority,
		report.GeneratedAt,
	}

	if tx := duckdb.GetTransaction(ctx); tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *reportStore) GetLatest(ctx context.Context, clinicID string) (*store.AdvisoryReport, error) {
	reports, err := r.List(ctx, clinicID, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return &reports[0], nil
}

func (r *reportStore) List(ctx context.Context, clinicID string, limit int) ([]store.AdvisoryReport, error) {
	query := `
		SELECT id, clinic_id, trigger_type, response_count, sections, summary, priority, generated_at
		FROM advisory_reports
		WHERE clinic_id = ?
		ORDER BY generated_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, clinicID, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]store.AdvisoryReport, 0)
	for rows.Next() {
		var (
			rep         store.AdvisoryReport
			sectionsRaw []byte
			priority    sql.NullInt32
		)
		err := rows.Scan(
			&rep.ID, &rep.ClinicID, &rep.TriggerType, &rep.ResponseCount,
			&sectionsRaw, &rep.Summary, &priority, &rep.GeneratedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if err := json.Unmarshal(sectionsRaw, &rep.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
		if priority.Valid {
			p := int(priority.Int32)
			rep.Priority = &p
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
