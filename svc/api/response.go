package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/sublife/pkg/logger"
)

type envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

// fail writes err as an error envelope. Client errors carry the error text;
// server errors are logged and answered with a generic message.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := toHTTPError(err)
	message := err.Error()

	if httpErr.Code >= http.StatusInternalServerError {
		a.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
		message = http.StatusText(httpErr.Code)
	} else {
		a.log.DebugContext(r.Context(), "request rejected",
			slog.String("code", httpErr.Key),
			logger.Error(err),
		)
	}

	writeJSON(w, httpErr.Code, envelope{Error: &errorDetail{Code: httpErr.Key, Message: message}})
}
