package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/sif/internal/domain"
	"github.com/dukerupert/sif/internal/middleware"
	"github.com/go-playground/validator/v10"
)

// errorCodeToHTTPStatus maps domain error codes to HTTP statuses.
func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAVAILABLE:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// respondError writes a structured JSON error and logs it with the
// request-scoped logger. Internal error details stay out of the response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := errorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}
	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	respondJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": domain.ErrorMessage(err),
		},
	})
}

// decodeBody decodes and validates a JSON request body.
func decodeBody(r *http.Request, validate *validator.Validate, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.WrapError(err, domain.EINVALID, "handler.decode", "Request body is not valid JSON")
	}
	if err := validate.Struct(dst); err != nil {
		return domain.WrapError(err, domain.EINVALID, "handler.validate", "Request body failed validation")
	}
	return nil
}
