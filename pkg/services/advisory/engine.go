package advisory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/adapters"
	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/analyzers"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/augment"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
	"github.com/clinic-tools/advisory-engine/pkg/services/snapshot"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb/report"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotEligible means the clinic has not collected enough responses.
	ErrNotEligible = errors.New("clinic is not eligible for a new advisory")
	// ErrGenerationInFlight means another generation for the same clinic is
	// still running. The caller's trigger is dropped, not queued.
	ErrGenerationInFlight = errors.New("advisory generation already in flight")
)

const defaultAugmentTimeout = 30 * time.Second

// Engine runs the full generation pipeline: eligibility gate, snapshot,
// analyzer fan-out, synthesis, optional LLM augmentation, persistence.
type Engine struct {
	db        *sql.DB
	states    state.Store
	reports   report.Store
	snapshots snapshot.Provider
	generator augment.SectionGenerator
	table     *rules.Table

	augmentTimeout time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type EngineDeps struct {
	DB        *sql.DB
	States    state.Store
	Reports   report.Store
	Snapshots snapshot.Provider
	Generator augment.SectionGenerator
	Table     *rules.Table

	// AugmentTimeout bounds the LLM call; zero means the default.
	AugmentTimeout time.Duration
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.DB == nil || deps.States == nil || deps.Reports == nil || deps.Snapshots == nil {
		return nil, fmt.Errorf("engine requires db, state store, report store and snapshot provider")
	}
	if deps.Generator == nil {
		deps.Generator = augment.Disabled{}
	}
	if deps.Table == nil {
		deps.Table = rules.Default()
	}
	if deps.AugmentTimeout <= 0 {
		deps.AugmentTimeout = defaultAugmentTimeout
	}
	return &Engine{
		db:             deps.DB,
		states:         deps.States,
		reports:        deps.Reports,
		snapshots:      deps.Snapshots,
		generator:      deps.Generator,
		table:          deps.Table,
		augmentTimeout: deps.AugmentTimeout,
		inFlight:       make(map[string]struct{}),
	}, nil
}

// GenerateReport produces, persists and returns a new advisory for the
// clinic. It fails with ErrNotEligible or ErrGenerationInFlight without
// touching any state.
func (e *Engine) GenerateReport(ctx context.Context, clinicID string, trigger domain.TriggerType) (*domain.AdvisoryReport, error) {
	logger := zerolog.Ctx(ctx)

	if err := e.acquire(clinicID); err != nil {
		return nil, err
	}
	defer e.release(clinicID)

	if err := e.states.EnsureClinic(ctx, clinicID); err != nil {
		return nil, err
	}
	st, err := e.states.Get(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("load advisory state: %w", err)
	}
	if !adapters.MapStoreStateToDomain(*st).CanGenerate() {
		return nil, ErrNotEligible
	}

	snap, err := e.snapshots.GetSnapshot(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	sections := e.runAnalyzers(snap)
	actionSection, priority := NewSynthesizer(e.table).Synthesize(snap, sections)
	sections = append(sections, actionSection)

	if generated := e.augmentSections(ctx, snap, sections); len(generated) > 0 {
		sections = append(generated, sections...)
	}

	generatedAt := time.Now().UTC()
	rep := &domain.AdvisoryReport{
		ID:            uuid.NewString(),
		ClinicID:      clinicID,
		TriggerType:   trigger,
		ResponseCount: snap.TotalResponses,
		Sections:      sections,
		Summary:       sections[0].Content,
		Priority:      priority,
		GeneratedAt:   generatedAt,
	}

	err = duckdb.InTransaction(ctx, e.db, func(ctx context.Context) error {
		if err := e.reports.Add(ctx, adapters.MapDomainReportToStore(*rep)); err != nil {
			return err
		}
		return e.states.ResetCounter(ctx, clinicID, generatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	logger.Info().
		Str("clinic_id", clinicID).
		Str("trigger", string(trigger)).
		Int("sections", len(sections)).
		Msg("advisory report generated")
	return rep, nil
}

// runAnalyzers fans the snapshot out to all analyzers concurrently and
// reassembles the non-nil sections in the fixed order.
func (e *Engine) runAnalyzers(snap *domain.AnalysisSnapshot) []domain.AdvisorySection {
	ordered := analyzers.Ordered(e.table)
	results := make([]*domain.AdvisorySection, len(ordered))

	var wg sync.WaitGroup
	for i, a := range ordered {
		wg.Add(1)
		go func(i int, a analyzers.Analyzer) {
			defer wg.Done()
			results[i] = a.Analyze(snap)
		}(i, a)
	}
	wg.Wait()

	sections := make([]domain.AdvisorySection, 0, len(results))
	for _, s := range results {
		if s != nil {
			sections = append(sections, *s)
		}
	}
	return sections
}

func (e *Engine) augmentSections(
	ctx context.Context,
	snap *domain.AnalysisSnapshot,
	sections []domain.AdvisorySection,
) []domain.AdvisorySection {
	ctx, cancel := context.WithTimeout(ctx, e.augmentTimeout)
	defer cancel()

	generated, err := e.generator.Generate(ctx, snap, sections)
	if err != nil {
		// Generators are expected to degrade silently; a returned error is
		// still never fatal to the report.
		zerolog.Ctx(ctx).Warn().Err(err).Msg("augmentation failed")
		return nil
	}
	return generated
}

// Progress returns the clinic's position relative to the next report,
// together with the most recent report when one exists.
func (e *Engine) Progress(ctx context.Context, clinicID string) (*domain.AdvisoryProgress, error) {
	if err := e.states.EnsureClinic(ctx, clinicID); err != nil {
		return nil, err
	}
	st, err := e.states.Get(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("load advisory state: %w", err)
	}
	ds := adapters.MapStoreStateToDomain(*st)

	progress := &domain.AdvisoryProgress{
		Current:        ds.ResponsesSinceLast,
		Threshold:      ds.Threshold,
		Percentage:     ds.Percentage(),
		TotalResponses: ds.TotalResponses,
		CanGenerate:    ds.CanGenerate(),
	}
	if ds.LastGeneratedAt != nil {
		days := int(time.Since(*ds.LastGeneratedAt).Hours() / 24)
		progress.DaysSinceLastReport = &days
	}

	latest, err := e.reports.GetLatest(ctx, clinicID)
	switch {
	case errors.Is(err, report.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load latest report: %w", err)
	default:
		rep := adapters.MapStoreReportToDomain(*latest)
		progress.LastReport = &rep
	}
	return progress, nil
}

// OnNewResponse records one incoming survey response. It reports whether the
// increment crossed the generation threshold, so the caller can decide to
// trigger a threshold generation.
func (e *Engine) OnNewResponse(ctx context.Context, clinicID string) (crossed bool, err error) {
	st, err := e.states.IncrementResponses(ctx, clinicID)
	if err != nil {
		return false, fmt.Errorf("record response: %w", err)
	}
	if st.TotalResponses < domain.MinTotalResponses {
		return false, nil
	}
	// Fire only on the increment that reaches the threshold, not on every
	// response past it.
	return st.ResponsesSinceLast == st.Threshold, nil
}

// EligibleClinics lists clinics whose state currently allows generation.
func (e *Engine) EligibleClinics(ctx context.Context) ([]string, error) {
	clinics, err := e.states.ListClinics(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]string, 0, len(clinics))
	for _, clinicID := range clinics {
		st, err := e.states.Get(ctx, clinicID)
		if err != nil {
			return nil, fmt.Errorf("load state for %s: %w", clinicID, err)
		}
		if adapters.MapStoreStateToDomain(*st).CanGenerate() {
			eligible = append(eligible, clinicID)
		}
	}
	return eligible, nil
}

func (e *Engine) acquire(clinicID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[clinicID]; busy {
		return ErrGenerationInFlight
	}
	e.inFlight[clinicID] = struct{}{}
	return nil
}

func (e *Engine) release(clinicID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, clinicID)
}
