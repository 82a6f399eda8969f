package advisory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	modelstore "github.com/clinic-tools/advisory-engine/pkg/models/store"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb/report"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	snap *domain.AnalysisSnapshot
	err  error
}

func (p *stubProvider) GetSnapshot(_ context.Context, _ string) (*domain.AnalysisSnapshot, error) {
	return p.snap, p.err
}

type stubGenerator struct {
	generate func(ctx context.Context) ([]domain.AdvisorySection, error)
}

func (g *stubGenerator) Generate(ctx context.Context, _ *domain.AnalysisSnapshot, _ []domain.AdvisorySection) ([]domain.AdvisorySection, error) {
	if g.generate == nil {
		return nil, nil
	}
	return g.generate(ctx)
}

type engineFixture struct {
	db     *sql.DB
	states state.Store
	engine *Engine
}

func setupEngine(t *testing.T, snap *domain.AnalysisSnapshot, generator *stubGenerator) *engineFixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	states, err := state.NewStore(db)
	require.NoError(t, err)
	reports, err := report.NewStore(db)
	require.NoError(t, err)

	deps := EngineDeps{
		DB:        db,
		States:    states,
		Reports:   reports,
		Snapshots: &stubProvider{snap: snap},
	}
	if generator != nil {
		deps.Generator = generator
	}
	engine, err := NewEngine(deps)
	require.NoError(t, err)

	return &engineFixture{db: db, states: states, engine: engine}
}

func (f *engineFixture) makeEligible(t *testing.T, clinicID string) {
	t.Helper()
	require.NoError(t, f.states.EnsureClinic(context.Background(), clinicID))
	_, err := f.db.Exec(
		`UPDATE advisory_state SET responses_since_last = 35, total_responses = 60 WHERE clinic_id = ?`,
		clinicID,
	)
	require.NoError(t, err)
}

func eligibleSnapshot() *domain.AnalysisSnapshot {
	return &domain.AnalysisSnapshot{
		ClinicID:       "clinic-a",
		BuiltAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TotalResponses: 60,
		AvgScore:       4.2,
		QuestionScores: []domain.QuestionScore{
			{QuestionID: "q1", Label: "Staff response", Score: 4.6, Count: 30},
			{QuestionID: "q2", Label: "Waiting time", Score: 3.2, Count: 20},
		},
	}
}

func TestEngine_GenerateReport(t *testing.T) {
	f := setupEngine(t, eligibleSnapshot(), nil)
	ctx := context.Background()
	f.makeEligible(t, "clinic-a")

	rep, err := f.engine.GenerateReport(ctx, "clinic-a", domain.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, "clinic-a", rep.ClinicID)
	assert.Equal(t, domain.TriggerManual, rep.TriggerType)
	assert.Equal(t, 60, rep.ResponseCount)
	assert.NotEmpty(t, rep.ID)

	require.NotEmpty(t, rep.Sections)
	assert.Equal(t, domain.SectionSummary, rep.Sections[0].Type, "summary leads without augmentation")
	assert.Equal(t, domain.SectionAction, rep.Sections[len(rep.Sections)-1].Type, "action section closes the report")
	assert.Equal(t, rep.Sections[0].Content, rep.Summary)

	st, err := f.states.Get(ctx, "clinic-a")
	require.NoError(t, err)
	assert.Equal(t, 0, st.ResponsesSinceLast, "successful generation resets the counter")
	assert.Equal(t, 60, st.TotalResponses)
	assert.NotNil(t, st.LastGeneratedAt)

	progress, err := f.engine.Progress(ctx, "clinic-a")
	require.NoError(t, err)
	require.NotNil(t, progress.LastReport)
	assert.Equal(t, rep.ID, progress.LastReport.ID)
}

func TestEngine_GenerateReport_NotEligible(t *testing.T) {
	f := setupEngine(t, eligibleSnapshot(), nil)
	ctx := context.Background()

	_, err := f.engine.GenerateReport(ctx, "fresh-clinic", domain.TriggerManual)
	assert.ErrorIs(t, err, ErrNotEligible)

	st, err := f.states.Get(ctx, "fresh-clinic")
	require.NoError(t, err)
	assert.Equal(t, 0, st.ResponsesSinceLast, "rejected trigger leaves state untouched")
}

func TestEngine_GenerateReport_AugmentationPrepended(t *testing.T) {
	generator := &stubGenerator{
		generate: func(context.Context) ([]domain.AdvisorySection, error) {
			return []domain.AdvisorySection{
				{Title: "Extra Insight", Content: "Something new.", Type: domain.SectionLLM},
			}, nil
		},
	}
	f := setupEngine(t, eligibleSnapshot(), generator)
	f.makeEligible(t, "clinic-a")

	rep, err := f.engine.GenerateReport(context.Background(), "clinic-a", domain.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, domain.SectionLLM, rep.Sections[0].Type, "generated sections lead the report")
	assert.Equal(t, "Something new.", rep.Summary)
	assert.Equal(t, domain.SectionAction, rep.Sections[len(rep.Sections)-1].Type)
}

func TestEngine_GenerateReport_AugmentationFailureTolerated(t *testing.T) {
	generator := &stubGenerator{
		generate: func(context.Context) ([]domain.AdvisorySection, error) {
			return nil, assert.AnError
		},
	}
	f := setupEngine(t, eligibleSnapshot(), generator)
	f.makeEligible(t, "clinic-a")

	rep, err := f.engine.GenerateReport(context.Background(), "clinic-a", domain.TriggerThreshold)
	require.NoError(t, err, "augmentation failure must not block the report")
	assert.Equal(t, domain.SectionSummary, rep.Sections[0].Type)
}

func TestEngine_GenerateReport_InFlightConflict(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	generator := &stubGenerator{
		generate: func(context.Context) ([]domain.AdvisorySection, error) {
			close(started)
			<-block
			return nil, nil
		},
	}
	f := setupEngine(t, eligibleSnapshot(), generator)
	f.makeEligible(t, "clinic-a")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.GenerateReport(ctx, "clinic-a", domain.TriggerThreshold)
		done <- err
	}()

	<-started
	_, err := f.engine.GenerateReport(ctx, "clinic-a", domain.TriggerManual)
	assert.ErrorIs(t, err, ErrGenerationInFlight)

	close(block)
	require.NoError(t, <-done)

	// The guard is released after completion.
	_, err = f.engine.GenerateReport(ctx, "clinic-a", domain.TriggerManual)
	assert.ErrorIs(t, err, ErrNotEligible, "counter was reset, so the clinic is no longer eligible")
}

func TestEngine_OnNewResponse(t *testing.T) {
	f := setupEngine(t, eligibleSnapshot(), nil)
	ctx := context.Background()

	t.Run("below total floor never crosses", func(t *testing.T) {
		crossed, err := f.engine.OnNewResponse(ctx, "new-clinic")
		require.NoError(t, err)
		assert.False(t, crossed)
	})

	t.Run("crosses exactly at the threshold", func(t *testing.T) {
		require.NoError(t, f.states.EnsureClinic(ctx, "clinic-b"))
		_, err := f.db.Exec(
			`UPDATE advisory_state SET responses_since_last = 28, total_responses = 58 WHERE clinic_id = ?`,
			"clinic-b",
		)
		require.NoError(t, err)

		crossed, err := f.engine.OnNewResponse(ctx, "clinic-b")
		require.NoError(t, err)
		assert.False(t, crossed, "29 of 30")

		crossed, err = f.engine.OnNewResponse(ctx, "clinic-b")
		require.NoError(t, err)
		assert.True(t, crossed, "30 of 30")

		crossed, err = f.engine.OnNewResponse(ctx, "clinic-b")
		require.NoError(t, err)
		assert.False(t, crossed, "already past the threshold, no re-fire")
	})
}

func TestEngine_EligibleClinics(t *testing.T) {
	f := setupEngine(t, eligibleSnapshot(), nil)
	ctx := context.Background()

	f.makeEligible(t, "clinic-a")
	require.NoError(t, f.states.EnsureClinic(ctx, "clinic-b"))

	eligible, err := f.engine.EligibleClinics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"clinic-a"}, eligible)
}

type mockStateStore struct {
	mock.Mock
}

func (m *mockStateStore) Get(ctx context.Context, clinicID string) (*modelstore.AdvisoryState, error) {
	args := m.Called(ctx, clinicID)
	return args.Get(0).(*modelstore.AdvisoryState), args.Error(1)
}

func (m *mockStateStore) EnsureClinic(ctx context.Context, clinicID string) error {
	return m.Called(ctx, clinicID).Error(0)
}

func (m *mockStateStore) IncrementResponses(ctx context.Context, clinicID string) (*modelstore.AdvisoryState, error) {
	args := m.Called(ctx, clinicID)
	return args.Get(0).(*modelstore.AdvisoryState), args.Error(1)
}

func (m *mockStateStore) ResetCounter(ctx context.Context, clinicID string, generatedAt time.Time) error {
	return m.Called(ctx, clinicID, generatedAt).Error(0)
}

func (m *mockStateStore) ListClinics(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type mockReportStore struct {
	mock.Mock
}

func (m *mockReportStore) Add(ctx context.Context, rep modelstore.AdvisoryReport) error {
	return m.Called(ctx, rep).Error(0)
}

func (m *mockReportStore) GetLatest(ctx context.Context, clinicID string) (*modelstore.AdvisoryReport, error) {
	args := m.Called(ctx, clinicID)
	return args.Get(0).(*modelstore.AdvisoryReport), args.Error(1)
}

func (m *mockReportStore) List(ctx context.Context, clinicID string, limit int) ([]modelstore.AdvisoryReport, error) {
	args := m.Called(ctx, clinicID, limit)
	return args.Get(0).([]modelstore.AdvisoryReport), args.Error(1)
}

// A failed report insert must roll the whole transaction back and leave the
// response counter intact.
func TestEngine_GenerateReport_PersistFailure(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectBegin()
	sqlMock.ExpectRollback()

	states := &mockStateStore{}
	states.On("EnsureClinic", mock.Anything, "clinic-a").Return(nil)
	states.On("Get", mock.Anything, "clinic-a").Return(&modelstore.AdvisoryState{
		ClinicID:           "clinic-a",
		ResponsesSinceLast: 35,
		Threshold:          30,
		TotalResponses:     60,
	}, nil)

	reports := &mockReportStore{}
	reports.On("Add", mock.Anything, mock.Anything).Return(assert.AnError)

	engine, err := NewEngine(EngineDeps{
		DB:        db,
		States:    states,
		Reports:   reports,
		Snapshots: &stubProvider{snap: eligibleSnapshot()},
	})
	require.NoError(t, err)

	_, err = engine.GenerateReport(context.Background(), "clinic-a", domain.TriggerManual)
	require.ErrorIs(t, err, assert.AnError)

	states.AssertNotCalled(t, "ResetCounter", mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
