package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// writeJSON serializes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError responds with the standard error body. Messages are
// human-readable and never leak internal identifiers or stack traces.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeInternalError logs the cause and responds with an opaque 500.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeAndValidate parses the JSON body into v and runs struct validation.
// A false return means the error response has already been written.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": "Validation error",
				"errors":  fieldMessages(verrs),
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation error")
		return false
	}
	return true
}

// fieldMessages renders one human-readable message per failed field.
func fieldMessages(verrs validator.ValidationErrors) []string {
	msgs := make([]string, len(verrs))
	for i, e := range verrs {
		field := strings.ToLower(e.Field()[:1]) + e.Field()[1:]
		switch e.Tag() {
		case "required":
			msgs[i] = fmt.Sprintf("%s is required", field)
		case "email":
			msgs[i] = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			msgs[i] = fmt.Sprintf("%s must be at least %s", field, e.Param())
		default:
			msgs[i] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return msgs
}
