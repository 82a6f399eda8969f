package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	advisorysvc "github.com/clinic-tools/advisory-engine/pkg/services/advisory"
	"github.com/rs/zerolog"
)

// Trigger is the slice of the engine the scheduler drives.
type Trigger interface {
	EligibleClinics(ctx context.Context) ([]string, error)
	GenerateReport(ctx context.Context, clinicID string, trigger domain.TriggerType) (*domain.AdvisoryReport, error)
}

// Runner periodically scans for clinics that are eligible for a new advisory
// and generates scheduled reports for them. Generation failures are logged
// and retried on the next scan, never escalated.
type Runner struct {
	engine Trigger
	done   chan struct{}
	config RunnerConfig
}

type RunnerConfig struct {
	ScanInterval time.Duration
}

func NewRunner(engine Trigger, config RunnerConfig) *Runner {
	if config.ScanInterval <= 0 {
		config.ScanInterval = time.Hour
	}
	return &Runner{
		engine: engine,
		done:   make(chan struct{}),
		config: config,
	}
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) Run(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	defer close(r.done)

	ticker := time.NewTicker(r.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			r.scan(ctx)
		}
	}
}

func (r *Runner) scan(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	clinics, err := r.engine.EligibleClinics(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list eligible clinics")
		return
	}

	for _, clinicID := range clinics {
		_, err := r.engine.GenerateReport(ctx, clinicID, domain.TriggerScheduled)
		switch {
		case errors.Is(err, advisorysvc.ErrGenerationInFlight),
			errors.Is(err, advisorysvc.ErrNotEligible):
			// Another trigger beat us to it. Nothing lost.
		case err != nil:
			logger.Error().Err(err).Str("clinic_id", clinicID).Msg("scheduled generation failed")
		default:
			logger.Info().Str("clinic_id", clinicID).Msg("scheduled advisory generated")
		}
	}
}
