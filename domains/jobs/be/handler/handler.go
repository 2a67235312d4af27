package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wundergunder/gunderats/domains/jobs/be/service"
	platformauth "github.com/wundergunder/gunderats/platform/go/auth"
	"github.com/wundergunder/gunderats/platform/go/httpapi"
	"github.com/wundergunder/gunderats/platform/go/logging"
	"github.com/wundergunder/gunderats/platform/go/session"
)

// Handler exposes job posting endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("jobs service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers job endpoints behind the session middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/companies/{companyID}/jobs", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/offerable", h.listOfferable)
		r.Get("/{jobID}", h.get)
		r.Patch("/{jobID}", h.update)
	})
}

type salaryPayload struct {
	Min      int64  `json:"min"`
	Max      int64  `json:"max"`
	Currency string `json:"currency"`
}

type jobResponse struct {
	ID           uuid.UUID      `json:"id"`
	CompanyID    uuid.UUID      `json:"companyId"`
	Title        string         `json:"title"`
	Description  *string        `json:"description,omitempty"`
	Requirements *string        `json:"requirements,omitempty"`
	Status       string         `json:"status"`
	Location     *string        `json:"location,omitempty"`
	Salary       *salaryPayload `json:"salary,omitempty"`
	CreatedBy    uuid.UUID      `json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	filter := service.ListFilter{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := service.Status(raw)
		filter.Status = &status
	}

	jobs, err := h.svc.List(r.Context(), sess, companyID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": toJobResponses(jobs)})
}

func (h *Handler) listOfferable(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	jobs, err := h.svc.ListOfferable(r.Context(), sess, companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": toJobResponses(jobs)})
}

type createRequest struct {
	Title        string         `json:"title"`
	Description  *string        `json:"description,omitempty"`
	Requirements *string        `json:"requirements,omitempty"`
	Status       *string        `json:"status,omitempty"`
	Location     *string        `json:"location,omitempty"`
	Salary       *salaryPayload `json:"salary,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		httpapi.WriteProblem(w, httpapi.NewProblem("Unauthorized", "authentication required", httpapi.ProblemTypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}
	createdBy, err := uuid.Parse(creds.ID)
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Unauthorized", "subject is not a valid user id", httpapi.ProblemTypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	input := service.CreateInput{
		Title:        body.Title,
		Description:  body.Description,
		Requirements: body.Requirements,
		Location:     body.Location,
		Salary:       toSalary(body.Salary),
		CreatedBy:    createdBy,
	}
	if body.Status != nil {
		input.Status = service.Status(*body.Status)
	}

	job, err := h.svc.Create(r.Context(), sess, companyID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/companies/"+companyID.String()+"/jobs/"+job.ID.String())
	httpapi.WriteJSON(w, http.StatusCreated, toJobResponse(job))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid job id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	job, err := h.svc.Get(r.Context(), sess, companyID, jobID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

type updateRequest struct {
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Requirements *string        `json:"requirements,omitempty"`
	Status       *string        `json:"status,omitempty"`
	Location     *string        `json:"location,omitempty"`
	Salary       *salaryPayload `json:"salary,omitempty"`
	ClearSalary  bool           `json:"clearSalary,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid job id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	var body updateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	input := service.UpdateInput{
		Title:        body.Title,
		Description:  body.Description,
		Requirements: body.Requirements,
		Location:     body.Location,
		Salary:       toSalary(body.Salary),
		ClearSalary:  body.ClearSalary,
	}
	if body.Status != nil {
		status := service.Status(*body.Status)
		input.Status = &status
	}

	job, err := h.svc.Update(r.Context(), sess, companyID, jobID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toJobResponse(job))
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
	switch {
	case errors.As(err, &validationErr):
		httpapi.WriteProblem(w, httpapi.NewProblem("Validation failed", "one or more fields are invalid", httpapi.ProblemTypeValidation, http.StatusBadRequest, validationErr.Fields))
	case errors.Is(err, service.ErrNotFound):
		httpapi.WriteProblem(w, httpapi.NewProblem("Not found", "job not found", httpapi.ProblemTypeNotFound, http.StatusNotFound, nil))
	default:
		logging.FromRequest(r, h.logger).Error("jobs handler failure", zap.Error(err))
		httpapi.WriteProblem(w, httpapi.NewProblem("Internal error", "unexpected failure", httpapi.ProblemTypeInternal, http.StatusInternalServerError, nil))
	}
}

func toSalary(p *salaryPayload) *service.Salary {
	if p == nil {
		return nil
	}
	return &service.Salary{Min: p.Min, Max: p.Max, Currency: p.Currency}
}

func toJobResponse(j service.Job) jobResponse {
	resp := jobResponse{
		ID:           j.ID,
		CompanyID:    j.CompanyID,
		Title:        j.Title,
		Description:  j.Description,
		Requirements: j.Requirements,
		Status:       string(j.Status),
		Location:     j.Location,
		CreatedBy:    j.CreatedBy,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
	if j.Salary != nil {
		resp.Salary = &salaryPayload{Min: j.Salary.Min, Max: j.Salary.Max, Currency: j.Salary.Currency}
	}
	return resp
}

func toJobResponses(jobs []service.Job) []jobResponse {
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	return out
}
