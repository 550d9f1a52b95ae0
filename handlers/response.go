// Package handlers holds what every HTTP handler package shares: JSON
// responses, request validation and the mapping from market errors to
// status codes.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"milestoneamm/handlers/math/fixedpoint"
	"milestoneamm/middleware"
	"milestoneamm/models"
	"milestoneamm/service"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string           `json:"error"`
	Code  string           `json:"code,omitempty"`
	Kind  models.ErrorKind `json:"kind,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps an operation error to an HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, service.ErrLockTimeout) {
		return http.StatusServiceUnavailable
	}
	kind, ok := models.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case models.KindValidation, models.KindIdentity:
		return http.StatusBadRequest
	case models.KindAuthorization:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindTemporal, models.KindState:
		return http.StatusConflict
	case models.KindEconomic, models.KindArithmetic:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// WriteError writes err as an ErrorResponse. Unclassified errors are hidden
// behind a generic message.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := ErrorResponse{Error: err.Error(), Code: models.CodeOf(err)}
	if kind, ok := models.KindOf(err); ok {
		body.Kind = kind
	}
	if status == http.StatusInternalServerError {
		body = ErrorResponse{Error: "internal error"}
	}
	WriteJSON(w, status, body)
}

// WriteBadRequest writes a validation failure that never reached the core.
func WriteBadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: msg,
		Code:  models.ErrInvalidParams.Code,
		Kind:  models.KindValidation,
	})
}

// DecodeJSON decodes the body into dst and validates its struct tags. On
// failure it writes the response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			WriteBadRequest(w, strings.Join(msgs, "; "))
			return false
		}
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// Caller returns the verified identity or writes 401.
func Caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return "", false
	}
	return identity, true
}

// Amount parses a decimal amount field into fixed point, writing 400 on
// failure. Empty optional fields parse as zero.
func Amount(w http.ResponseWriter, field, value string, required bool) (int64, bool) {
	if value == "" && !required {
		return 0, true
	}
	v, err := fixedpoint.Parse(value)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("%s must be a decimal amount", field))
		return 0, false
	}
	return v, true
}

// OptionalAmount parses a pointer field, leaving nil as nil.
func OptionalAmount(w http.ResponseWriter, field string, value *string) (*int64, bool) {
	if value == nil {
		return nil, true
	}
	v, ok := Amount(w, field, *value, true)
	if !ok {
		return nil, false
	}
	return &v, true
}

// Page reads page and pageSize query parameters.
func Page(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	return page, size
}
