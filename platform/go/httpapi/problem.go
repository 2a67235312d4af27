package httpapi

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs shared by all handlers.
const (
	ProblemTypeValidation   = "https://gunderats.com/problems/validation-error"
	ProblemTypeNotFound     = "https://gunderats.com/problems/not-found"
	ProblemTypeConflict     = "https://gunderats.com/problems/conflict"
	ProblemTypeUnauthorized = "https://gunderats.com/problems/unauthorized"
	ProblemTypeInternal     = "https://gunderats.com/problems/internal-error"
)

// ProblemDetails is the RFC 7807 error body returned by every endpoint.
type ProblemDetails struct {
	Type   *string              `json:"type,omitempty"`
	Title  string               `json:"title"`
	Status int                  `json:"status"`
	Detail *string              `json:"detail,omitempty"`
	Errors *map[string][]string `json:"errors,omitempty"`
}

// NewProblem assembles a ProblemDetails payload.
func NewProblem(title, detail, problemType string, status int, fieldErrors map[string][]string) ProblemDetails {
	problem := ProblemDetails{
		Title:  title,
		Status: status,
	}

	if detail != "" {
		problem.Detail = &detail
	}
	if problemType != "" {
		problem.Type = &problemType
	}

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		problem.Errors = &copied
	}

	return problem
}

// WriteProblem renders a problem document with the proper content type.
func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteJSON renders a regular JSON response body.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
