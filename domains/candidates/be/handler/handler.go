package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wundergunder/gunderats/domains/candidates/be/service"
	platformauth "github.com/wundergunder/gunderats/platform/go/auth"
	"github.com/wundergunder/gunderats/platform/go/httpapi"
	"github.com/wundergunder/gunderats/platform/go/logging"
	"github.com/wundergunder/gunderats/platform/go/session"
)

// Handler exposes candidate tracking endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("candidates service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers candidate endpoints behind the session middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/companies/{companyID}/candidates", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/summaries", h.listSummaries)
		r.Route("/{candidateID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Patch("/", h.update)
			r.Post("/transition", h.transition)
			r.Get("/history", h.history)
			r.Get("/comments", h.listComments)
			r.Post("/comments", h.addComment)
		})
	})
}

type candidateResponse struct {
	ID             uuid.UUID  `json:"id"`
	CompanyID      uuid.UUID  `json:"companyId"`
	JobID          uuid.UUID  `json:"jobId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Phone          *string    `json:"phone,omitempty"`
	CurrentStageID *uuid.UUID `json:"currentStageId"`
	Status         string     `json:"status"`
	CreatedBy      uuid.UUID  `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type stageEventResponse struct {
	ID          uuid.UUID `json:"id"`
	CandidateID uuid.UUID `json:"candidateId"`
	StageID     uuid.UUID `json:"stageId"`
	StageName   *string   `json:"stageName"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedBy   uuid.UUID `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type summaryResponse struct {
	Candidate candidateResponse `json:"candidate"`
	JobTitle  string            `json:"jobTitle"`
	StageName *string           `json:"stageName"`
}

type commentResponse struct {
	ID          uuid.UUID `json:"id"`
	CandidateID uuid.UUID `json:"candidateId"`
	Content     string    `json:"content"`
	CreatedBy   uuid.UUID `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	filter, ok := h.filter(w, r)
	if !ok {
		return
	}

	candidates, err := h.svc.List(r.Context(), sess, companyID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]candidateResponse, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, toCandidateResponse(c))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) listSummaries(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	filter, ok := h.filter(w, r)
	if !ok {
		return
	}

	summaries, err := h.svc.ListSummaries(r.Context(), sess, companyID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, summaryResponse{
			Candidate: toCandidateResponse(s.Candidate),
			JobTitle:  s.JobTitle,
			StageName: s.StageName,
		})
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createRequest struct {
	JobID          uuid.UUID  `json:"jobId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Phone          *string    `json:"phone,omitempty"`
	InitialStageID *uuid.UUID `json:"initialStageId,omitempty"`
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

	candidate, err := h.svc.Create(r.Context(), sess, companyID, service.CreateInput{
		JobID:          body.JobID,
		FirstName:      body.FirstName,
		LastName:       body.LastName,
		Email:          body.Email,
		Phone:          body.Phone,
		InitialStageID: body.InitialStageID,
		CreatedBy:      createdBy,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/companies/"+companyID.String()+"/candidates/"+candidate.ID.String())
	httpapi.WriteJSON(w, http.StatusCreated, toCandidateResponse(candidate))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.candidateScope(w, r)
	if !ok {
		return
	}

	candidate, err := h.svc.Get(r.Context(), sess, companyID, candidateID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toCandidateResponse(candidate))
}

type updateRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Status    *string `json:"status,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.candidateScope(w, r)
	if !ok {
		return
	}

	var body updateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	input := service.UpdateInput{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
		Phone:     body.Phone,
	}
	if body.Status != nil {
		status := service.Status(*body.Status)
		input.Status = &status
	}

	candidate, err := h.svc.Update(r.Context(), sess, companyID, candidateID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toCandidateResponse(candidate))
}

type transitionRequest struct {
	StageID uuid.UUID `json:"stageId"`
	Notes   *string   `json:"notes,omitempty"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.candidateScope(w, r)
	if !ok {
		return
	}

	var body transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	candidate, event, err := h.svc.TransitionStage(r.Context(), sess, companyID, candidateID, body.StageID, body.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"candidate": toCandidateResponse(candidate),
		"event":     toStageEventResponse(event),
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.candidateScope(w, r)
	if !ok {
		return
	}

	events, err := h.svc.StageHistory(r.Context(), sess, companyID, candidateID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]stageEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, toStageEventResponse(e))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type addCommentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.candidateScope(w, r)
	if !ok {
		return
	}

	var body addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	comment, err := h.svc.AddComment(r.Context(), sess, companyID, candidateID, body.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.candidateScope(w, r)
	if !ok {
		return
	}

	comments, err := h.svc.ListComments(r.Context(), sess, companyID, candidateID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		items = append(items, toCommentResponse(c))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
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

func (h *Handler) candidateScope(w http.ResponseWriter, r *http.Request) (session.Context, uuid.UUID, uuid.UUID, bool) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return session.Context{}, uuid.Nil, uuid.Nil, false
	}

	candidateID, err := uuid.Parse(chi.URLParam(r, "candidateID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid candidate id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return session.Context{}, uuid.Nil, uuid.Nil, false
	}

	return sess, companyID, candidateID, true
}

func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (service.ListFilter, bool) {
	filter := service.ListFilter{}
	if raw := r.URL.Query().Get("jobId"); raw != "" {
		jobID, err := uuid.Parse(raw)
		if err != nil {
			httpapi.WriteProblem(w, httpapi.NewProblem("Invalid job id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
			return service.ListFilter{}, false
		}
		filter.JobID = &jobID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := service.Status(raw)
		filter.Status = &status
	}
	return filter, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		httpapi.WriteProblem(w, httpapi.NewProblem("Validation failed", "one or more fields are invalid", httpapi.ProblemTypeValidation, http.StatusBadRequest, validationErr.Fields))
	case errors.Is(err, service.ErrNotFound):
		httpapi.WriteProblem(w, httpapi.NewProblem("Not found", "candidate not found", httpapi.ProblemTypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, service.ErrJobNotFound):
		httpapi.WriteProblem(w, httpapi.NewProblem("Not found", "job not found", httpapi.ProblemTypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, service.ErrStageNotFound):
		httpapi.WriteProblem(w, httpapi.NewProblem("Not found", "stage not found in this company's pipeline", httpapi.ProblemTypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, service.ErrJobNotOpen):
		httpapi.WriteProblem(w, httpapi.NewProblem("Conflict", "the job is not published", httpapi.ProblemTypeConflict, http.StatusConflict, nil))
	default:
		logging.FromRequest(r, h.logger).Error("candidates handler failure", zap.Error(err))
		httpapi.WriteProblem(w, httpapi.NewProblem("Internal error", "unexpected failure", httpapi.ProblemTypeInternal, http.StatusInternalServerError, nil))
	}
}

func toCandidateResponse(c service.Candidate) candidateResponse {
	return candidateResponse{
		ID:             c.ID,
		CompanyID:      c.CompanyID,
		JobID:          c.JobID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		CurrentStageID: c.CurrentStageID,
		Status:         string(c.Status),
		CreatedBy:      c.CreatedBy,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toStageEventResponse(e service.StageEvent) stageEventResponse {
	return stageEventResponse{
		ID:          e.ID,
		CandidateID: e.CandidateID,
		StageID:     e.StageID,
		StageName:   e.StageName,
		Notes:       e.Notes,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func toCommentResponse(c service.Comment) commentResponse {
	return commentResponse{
		ID:          c.ID,
		CandidateID: c.CandidateID,
		Content:     c.Content,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
	}
}
