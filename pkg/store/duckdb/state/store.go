package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/store"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb"
)

// Store tracks the per-clinic generation state: the rolling response counter,
// the eligibility threshold, and the last generation timestamp.
type Store interface {
	Get(ctx context.Context, clinicID string) (*store.AdvisoryState, error)
	EnsureClinic(ctx context.Context, clinicID string) error
	IncrementResponses(ctx context.Context, clinicID string) (*store.AdvisoryState, error)
	ResetCounter(ctx context.Context, clinicID string, generatedAt time.Time) error
	ListClinics(ctx context.Context) ([]string, error)
}

type stateStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &stateStore{db: db}, nil
}

func (s *stateStore) Get(ctx context.Context, clinicID string) (*store.AdvisoryState, error) {
	query := `
		SELECT clinic_id, responses_since_last, threshold, total_responses, last_generated_at
		FROM advisory_state
		WHERE clinic_id = ?
	`
	row := s.db.QueryRowContext(ctx, query, clinicID)
	return scanState(row)
}

func (s *stateStore) EnsureClinic(ctx context.Context, clinicID string) error {
	query := `
		INSERT INTO advisory_state (clinic_id)
		VALUES (?)
		ON CONFLICT (clinic_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, clinicID); err != nil {
		return fmt.Errorf("ensure clinic state: %w", err)
	}
	return nil
}

// IncrementResponses bumps both counters in a single statement and returns
// the post-increment state, so concurrent response events never lose updates.
func (s *stateStore) IncrementResponses(ctx context.Context, clinicID string) (*store.AdvisoryState, error) {
	if err := s.EnsureClinic(ctx, clinicID); err != nil {
		return nil, err
	}

	query := `
		UPDATE advisory_state
		SET responses_since_last = responses_since_last + 1,
			total_responses = total_responses + 1
		WHERE clinic_id = ?
		RETURNING clinic_id, responses_since_last, threshold, total_responses, last_generated_at
	`
	row := s.db.QueryRowContext(ctx, query, clinicID)
	return scanState(row)
}

// ResetCounter zeroes the rolling counter and stamps the generation time.
// It participates in a surrounding transaction when one is bound to the
// context, so the reset commits together with the report insert.
func (s *stateStore) ResetCounter(ctx context.Context, clinicID string, generatedAt time.Time) error {
	query := `
		UPDATE advisory_state
		SET responses_since_last = 0, last_generated_at = ?
		WHERE clinic_id = ?
	`

	var err error
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		_, err = tx.ExecContext(ctx, query, generatedAt, clinicID)
	} else {
		_, err = s.db.ExecContext(ctx, query, generatedAt, clinicID)
	}
	if err != nil {
		return fmt.Errorf("reset counter: %w", err)
	}
	return nil
}

func (s *stateStore) ListClinics(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT clinic_id FROM advisory_state ORDER BY clinic_id`)
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	defer rows.Close()

	clinics := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		clinics = append(clinics, id)
	}
	return clinics, rows.Err()
}

func scanState(row *sql.Row) (*store.AdvisoryState, error) {
	var (
		st        store.AdvisoryState
		generated sql.NullTime
	)
	err := row.Scan(&st.ClinicID, &st.ResponsesSinceLast, &st.Threshold, &st.TotalResponses, &generated)
	if err != nil {
		return nil, fmt.Errorf("scan advisory state: %w", err)
	}
	if generated.Valid {
		t := generated.Time
		st.LastGeneratedAt = &t
	}
	return &st, nil
}
