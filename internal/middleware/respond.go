package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RespondWithJSON sends a success envelope carrying data.
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, Response{Success: true, Data: data})
}

// RespondWithMessage sends a success envelope carrying data and a
// human-readable message.
func RespondWithMessage(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, Response{Success: true, Message: message, Data: data})
}

// RespondWithError sends a failure envelope. The message is written for the
// end user and surfaced by the frontend as-is.
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, Response{Success: false, Message: message})
}

// RespondWithServerError sends a 500 with a generic message plus the
// underlying error text for diagnostics.
func RespondWithServerError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, Response{
		Success: false,
		Message: "something went wrong",
		Error:   err.Error(),
	})
}

// RespondWithValidationErrors sends the field-level validation failures.
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "validation failed",
		Data:    map[string]interface{}{"validation_errors": errors},
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// Recovery catches panics and converts them to 500 envelopes.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)
					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
