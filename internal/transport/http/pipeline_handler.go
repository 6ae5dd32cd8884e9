package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "datapipe/internal/errors"
	"datapipe/pkg/contracts/domain"
)

// PipelineHandler serves the run endpoints.
type PipelineHandler struct {
	service  *PipelineService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewPipelineHandler creates the handler.
func NewPipelineHandler(service *PipelineService, logger *slog.Logger) *PipelineHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineHandler{
		service:  service,
		logger:   logger.With(slog.String("handler", "pipeline")),
		validate: validator.New(),
	}
}

// Routes registers the pipeline endpoints.
func (h *PipelineHandler) Routes(r chi.Router) {
	r.Post("/pipeline", h.StartRun)
	r.Get("/pipeline", h.ListRuns)
	r.Get("/pipeline/{id}", h.GetRun)
}

// StartRunRequest is the POST /api/pipeline body. It mirrors the CLI
// flags; unset fields fall back to configured defaults.
type StartRunRequest struct {
	Year             int     `json:"year"`
	Format           string  `json:"format,omitempty"`
	Verbose          bool    `json:"verbose,omitempty"`
	RemoveOutliers   *bool   `json:"remove_outliers,omitempty"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty"`
}

// Bind implements render.Binder.
func (r *StartRunRequest) Bind(req *http.Request) error {
	if r.Year == 0 {
		return errors.New("year is required")
	}
	return nil
}

// StartRun starts a run and answers 202 with its initial state.
func (h *PipelineHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	params := domain.RunParams{
		Year:             req.Year,
		Format:           req.Format,
		Verbose:          req.Verbose,
		RemoveOutliers:   req.RemoveOutliers,
		OutlierThreshold: req.OutlierThreshold,
	}
	if err := h.validate.Struct(params); err != nil {
		render.Render(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error()))
		return
	}

	state, err := h.service.StartRun(r.Context(), params)
	if err != nil {
		if errors.Is(err, ErrYearActive) {
			render.Render(w, r, apierrors.ErrYearBusy)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to start run",
			slog.Int("year", params.Year),
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}

	h.logger.InfoContext(r.Context(), "run accepted",
		slog.String("run_id", state.ID),
		slog.Int("year", params.Year))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, state.Snapshot())
}

// GetRun answers the current state of one run.
func (h *PipelineHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := h.service.Run(id)
	if !ok {
		render.Render(w, r, apierrors.ErrRunNotFound)
		return
	}
	render.JSON(w, r, state.Snapshot())
}

// ListRuns answers all known runs in start order.
func (h *PipelineHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"runs": h.service.Runs(),
	})
}
