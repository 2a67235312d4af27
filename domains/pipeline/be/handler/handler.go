package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wundergunder/gunderats/domains/pipeline/be/service"
	"github.com/wundergunder/gunderats/platform/go/httpapi"
	"github.com/wundergunder/gunderats/platform/go/logging"
	"github.com/wundergunder/gunderats/platform/go/session"
)

// Handler exposes pipeline configuration endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("pipeline service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers stage endpoints behind the session middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/companies/{companyID}/stages", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.add)
		r.Put("/order", h.reorder)
		r.Delete("/{stageID}", h.delete)
	})
}

type stageResponse struct {
	ID         uuid.UUID `json:"id"`
	CompanyID  uuid.UUID `json:"companyId"`
	Name       string    `json:"name"`
	OrderIndex int       `json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	stages, err := h.svc.ListStages(r.Context(), sess, companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": toStageResponses(stages)})
}

type addStageRequest struct {
	Name string `json:"name"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body addStageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	stage, err := h.svc.AddStage(r.Context(), sess, companyID, body.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, toStageResponse(stage))
}

type reorderRequest struct {
	StageIDs []uuid.UUID `json:"stageIds"`
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	stages, err := h.svc.ReorderStages(r.Context(), sess, companyID, body.StageIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": toStageResponses(stages)})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	stageID, err := uuid.Parse(chi.URLParam(r, "stageID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid stage id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	force := r.URL.Query().Get("force") == "true"

	affected, err := h.svc.DeleteStage(r.Context(), sess, companyID, stageID, force)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"affectedCandidateIds": affected})
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (session.Context, uuid.UUID, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		httpapi.WriteProblem(w, httpapi.NewProblem("Unauthorized", "session is required", httpapi.ProblemTypeUnauthorized, http.StatusUnauthorized, nil))
		return session.Context{}, uuid.Nil, false
	}

	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid company id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return session.Context{}, uuid.Nil, false
	}

	return sess, companyID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	var inUseErr *service.StageInUseError
	switch {
	case errors.As(err, &validationErr):
		httpapi.WriteProblem(w, httpapi.NewProblem("Validation failed", "one or more fields are invalid", httpapi.ProblemTypeValidation, http.StatusBadRequest, validationErr.Fields))
	case errors.As(err, &inUseErr):
		fields := map[string][]string{"stageId": {inUseErr.Error()}}
		httpapi.WriteProblem(w, httpapi.NewProblem("Stage in use", "candidates still reference this stage; retry with force=true to delete anyway", httpapi.ProblemTypeConflict, http.StatusConflict, fields))
	case errors.Is(err, service.ErrNotFound):
		httpapi.WriteProblem(w, httpapi.NewProblem("Not found", "stage not found", httpapi.ProblemTypeNotFound, http.StatusNotFound, nil))
	default:
		logging.FromRequest(r, h.logger).Error("pipeline handler failure", zap.Error(err))
		httpapi.WriteProblem(w, httpapi.NewProblem("Internal error", "unexpected failure", httpapi.ProblemTypeInternal, http.StatusInternalServerError, nil))
	}
}

func toStageResponse(s service.Stage) stageResponse {
	return stageResponse{
		ID:         s.ID,
		CompanyID:  s.CompanyID,
		Name:       s.Name,
		OrderIndex: s.OrderIndex,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func toStageResponses(stages []service.Stage) []stageResponse {
	out := make([]stageResponse, 0, len(stages))
	for _, s := range stages {
		out = append(out, toStageResponse(s))
	}
	return out
}
