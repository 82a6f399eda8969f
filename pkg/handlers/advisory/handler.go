package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/adapters"
	"github.com/clinic-tools/advisory-engine/pkg/models/api"
	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	advisorysvc "github.com/clinic-tools/advisory-engine/pkg/services/advisory"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const backgroundGenerationTimeout = 5 * time.Minute

// Service is the slice of the engine the HTTP layer depends on.
type Service interface {
	GenerateReport(ctx context.Context, clinicID string, trigger domain.TriggerType) (*domain.AdvisoryReport, error)
	Progress(ctx context.Context, clinicID string) (*domain.AdvisoryProgress, error)
	OnNewResponse(ctx context.Context, clinicID string) (bool, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	clinicID := chi.URLParam(r, "clinic")

	progress, err := h.service.Progress(ctx, clinicID)
	if err != nil {
		logger.Error().Err(err).Str("clinic_id", clinicID).Msg("failed to load progress")
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapDomainProgressToApi(*progress))
}

func (h *Handler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	clinicID := chi.URLParam(r, "clinic")

	progress, err := h.service.Progress(ctx, clinicID)
	if err != nil {
		logger.Error().Err(err).Str("clinic_id", clinicID).Msg("failed to load latest report")
		writeError(w, http.StatusInternalServerError, "failed to load latest report")
		return
	}
	if progress.LastReport == nil {
		writeError(w, http.StatusNotFound, "no advisory report yet")
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapDomainReportToApi(*progress.LastReport))
}

// GenerateReport handles the manual trigger. It runs synchronously so the
// caller gets the finished report or the concrete refusal.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	clinicID := chi.URLParam(r, "clinic")

	report, err := h.service.GenerateReport(ctx, clinicID, domain.TriggerManual)
	switch {
	case errors.Is(err, advisorysvc.ErrNotEligible):
		writeError(w, http.StatusUnprocessableEntity, "not enough responses for a new advisory")
		return
	case errors.Is(err, advisorysvc.ErrGenerationInFlight):
		writeError(w, http.StatusConflict, "a generation is already running for this clinic")
		return
	case err != nil:
		logger.Error().Err(err).Str("clinic_id", clinicID).Msg("manual generation failed")
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, adapters.MapDomainReportToApi(*report))
}

// RecordResponse registers one survey response. Crossing the threshold fires
// a generation in the background; the event call never waits for it.
func (h *Handler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	clinicID := chi.URLParam(r, "clinic")

	crossed, err := h.service.OnNewResponse(ctx, clinicID)
	if err != nil {
		logger.Error().Err(err).Str("clinic_id", clinicID).Msg("failed to record response")
		writeError(w, http.StatusInternalServerError, "failed to record response")
		return
	}

	if crossed {
		bgCtx := logger.WithContext(context.Background())
		go func() {
			bgCtx, cancel := context.WithTimeout(bgCtx, backgroundGenerationTimeout)
			defer cancel()

			_, err := h.service.GenerateReport(bgCtx, clinicID, domain.TriggerThreshold)
			if err != nil && !errors.Is(err, advisorysvc.ErrGenerationInFlight) {
				zerolog.Ctx(bgCtx).Error().Err(err).Str("clinic_id", clinicID).Msg("threshold generation failed")
			}
		}()
	}

	writeJSON(ctx, w, http.StatusAccepted, api.ResponseEvent{ThresholdCrossed: crossed})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.Error{Error: message})
}
