package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wundergunder/gunderats/domains/companies/be/service"
	platformauth "github.com/wundergunder/gunderats/platform/go/auth"
	"github.com/wundergunder/gunderats/platform/go/httpapi"
	"github.com/wundergunder/gunderats/platform/go/logging"
	"github.com/wundergunder/gunderats/platform/go/session"
)

// Handler exposes company and membership endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("companies service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// AccountRoutes registers endpoints that only need an authenticated identity.
// Signup and the company selector must work for users with no memberships yet.
func (h *Handler) AccountRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Get("/companies", h.listSelectable)
}

// Routes registers company-scoped endpoints behind the session middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/companies/{companyID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Get("/members", h.listMembers)
		r.Post("/members", h.addMember)
		r.Delete("/members/{memberID}", h.removeMember)
	})
}

type companyResponse struct {
	ID                 uuid.UUID      `json:"id"`
	Name               string         `json:"name"`
	Settings           map[string]any `json:"settings"`
	SubscriptionStatus string         `json:"subscriptionStatus"`
	SubscriptionEndsAt *time.Time     `json:"subscriptionEndsAt,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

type memberResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	CompanyID uuid.UUID `json:"companyId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type signupRequest struct {
	CompanyName string         `json:"companyName"`
	Settings    map[string]any `json:"settings,omitempty"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		httpapi.WriteProblem(w, httpapi.NewProblem("Unauthorized", "authentication required", httpapi.ProblemTypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}
	userID, err := uuid.Parse(creds.ID)
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Unauthorized", "subject is not a valid user id", httpapi.ProblemTypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	var body signupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	company, err := h.svc.Signup(r.Context(), service.SignupInput{
		CompanyName: body.CompanyName,
		Settings:    body.Settings,
		AdminUserID: userID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/companies/"+company.ID.String())
	httpapi.WriteJSON(w, http.StatusCreated, toCompanyResponse(company))
}

func (h *Handler) listSelectable(w http.ResponseWriter, r *http.Request) {
	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok {
		httpapi.WriteProblem(w, httpapi.NewProblem("Unauthorized", "authentication required", httpapi.ProblemTypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}
	userID, err := uuid.Parse(creds.ID)
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Unauthorized", "subject is not a valid user id", httpapi.ProblemTypeUnauthorized, http.StatusUnauthorized, nil))
		return
	}

	companies, err := h.svc.ListSelectable(r.Context(), userID, creds.PlatformAdmin)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		items = append(items, toCompanyResponse(c))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	company, err := h.svc.Get(r.Context(), sess, companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toCompanyResponse(company))
}

type updateRequest struct {
	Name               *string        `json:"name,omitempty"`
	Settings           map[string]any `json:"settings,omitempty"`
	SubscriptionStatus *string        `json:"subscriptionStatus,omitempty"`
	SubscriptionEndsAt *time.Time     `json:"subscriptionEndsAt,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body updateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	company, err := h.svc.Update(r.Context(), sess, companyID, service.UpdateInput{
		Name:               body.Name,
		Settings:           body.Settings,
		SubscriptionStatus: body.SubscriptionStatus,
		SubscriptionEndsAt: body.SubscriptionEndsAt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toCompanyResponse(company))
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	members, err := h.svc.ListMembers(r.Context(), sess, companyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, toMemberResponse(m))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type addMemberRequest struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role"`
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	member, err := h.svc.AddMember(r.Context(), sess, companyID, service.AddMemberInput{
		UserID: body.UserID,
		Role:   service.Role(body.Role),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	sess, companyID, ok := h.scope(w, r)
	if !ok {
		return
	}

	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid member id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	if err := h.svc.RemoveMember(r.Context(), sess, companyID, memberID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
		httpapi.WriteProblem(w, httpapi.NewProblem("Not found", "company or member not found", httpapi.ProblemTypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, service.ErrConflict):
		httpapi.WriteProblem(w, httpapi.NewProblem("Conflict", "membership already exists", httpapi.ProblemTypeConflict, http.StatusConflict, nil))
	case errors.Is(err, service.ErrUnauthorized):
		httpapi.WriteProblem(w, httpapi.NewProblem("Forbidden", "admin role required", httpapi.ProblemTypeUnauthorized, http.StatusForbidden, nil))
	default:
		logging.FromRequest(r, h.logger).Error("companies handler failure", zap.Error(err))
		httpapi.WriteProblem(w, httpapi.NewProblem("Internal error", "unexpected failure", httpapi.ProblemTypeInternal, http.StatusInternalServerError, nil))
	}
}

func toCompanyResponse(c service.Company) companyResponse {
	return companyResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Settings:           c.Settings,
		SubscriptionStatus: c.SubscriptionStatus,
		SubscriptionEndsAt: c.SubscriptionEndsAt,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func toMemberResponse(m service.TeamMember) memberResponse {
	return memberResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		CompanyID: m.CompanyID,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
