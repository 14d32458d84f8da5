// Package httputil centralizes JSON encoding and domain error translation
// for HTTP handlers so every endpoint returns the same error envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	dErrors "atomfleet/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps a coded domain error to an HTTP response. Internal errors
// omit the description so storage details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
		}
	}
	WriteJSON(w, statusFor(code), body)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeDuplicateYear:
		return http.StatusConflict
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest, dErrors.CodeMissingCapacity:
		return http.StatusBadRequest
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Validatable lets request types parse and validate typed fields after
// decoding. DecodeAndPrepare calls it when implemented on *T.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T, runs struct tag
// validation and the optional Validate hook. On failure it writes the
// error response and returns ok=false; handlers just bail out.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req := new(T)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		if logger != nil {
			logger.DebugContext(r.Context(), "request decode failed", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return nil, false
	}
	if err := validate.Struct(req); err != nil {
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "request validation failed"))
		return nil, false
	}
	if v, ok := any(req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
	}
	return req, true
}
