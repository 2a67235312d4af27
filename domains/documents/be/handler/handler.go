package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wundergunder/gunderats/domains/documents/be/service"
	"github.com/wundergunder/gunderats/platform/go/httpapi"
	"github.com/wundergunder/gunderats/platform/go/logging"
	"github.com/wundergunder/gunderats/platform/go/session"
)

// Handler exposes document attach, list, download and removal endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("documents service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers document endpoints behind the session middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/companies/{companyID}/candidates/{candidateID}/documents", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.attach)
		r.Get("/{documentID}", h.download)
		r.Delete("/{documentID}", h.remove)
	})
}

type documentResponse struct {
	ID          uuid.UUID `json:"id"`
	CandidateID uuid.UUID `json:"candidateId"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	CreatedBy   uuid.UUID `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// attach accepts multipart/form-data with the blob under "file" and the
// document type under "type".
func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", "a file part is required", httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxUploadSize+1))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid request body", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	doc, err := h.svc.Attach(r.Context(), sess, companyID, candidateID, service.AttachInput{
		Type:        service.Type(r.FormValue("type")),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.scope(w, r)
	if !ok {
		return
	}

	docs, err := h.svc.List(r.Context(), sess, companyID, candidateID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, toDocumentResponse(d))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.scope(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid document id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	doc, data, err := h.svc.Download(r.Context(), sess, companyID, candidateID, documentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	sess, companyID, candidateID, ok := h.scope(w, r)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid document id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return
	}

	if err := h.svc.Remove(r.Context(), sess, companyID, candidateID, documentID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (session.Context, uuid.UUID, uuid.UUID, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		httpapi.WriteProblem(w, httpapi.NewProblem("Unauthorized", "session is required", httpapi.ProblemTypeUnauthorized, http.StatusUnauthorized, nil))
		return session.Context{}, uuid.Nil, uuid.Nil, false
	}

	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid company id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return session.Context{}, uuid.Nil, uuid.Nil, false
	}

	candidateID, err := uuid.Parse(chi.URLParam(r, "candidateID"))
	if err != nil {
		httpapi.WriteProblem(w, httpapi.NewProblem("Invalid candidate id", err.Error(), httpapi.ProblemTypeValidation, http.StatusBadRequest, nil))
		return session.Context{}, uuid.Nil, uuid.Nil, false
	}

	return sess, companyID, candidateID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		httpapi.WriteProblem(w, httpapi.NewProblem("Validation failed", "one or more fields are invalid", httpapi.ProblemTypeValidation, http.StatusBadRequest, validationErr.Fields))
	case errors.Is(err, service.ErrNotFound):
		httpapi.WriteProblem(w, httpapi.NewProblem("Not found", "document not found", httpapi.ProblemTypeNotFound, http.StatusNotFound, nil))
	case errors.Is(err, service.ErrCandidateNotFound):
		httpapi.WriteProblem(w, httpapi.NewProblem("Not found", "candidate not found", httpapi.ProblemTypeNotFound, http.StatusNotFound, nil))
	default:
		logging.FromRequest(r, h.logger).Error("documents handler failure", zap.Error(err))
		httpapi.WriteProblem(w, httpapi.NewProblem("Internal error", "unexpected failure", httpapi.ProblemTypeInternal, http.StatusInternalServerError, nil))
	}
}

func toDocumentResponse(d service.Document) documentResponse {
	return documentResponse{
		ID:          d.ID,
		CandidateID: d.CandidateID,
		Type:        string(d.Type),
		Name:        d.Name,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
	}
}
