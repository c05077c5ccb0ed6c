package api

import (
	"encoding/json"
	"net/http"

	"casebox/service"

	log "github.com/sirupsen/logrus"
)

type errorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

type failureResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// statusFor maps a service error kind onto an HTTP status
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindNotFound, service.KindInvalidState, service.KindInsufficientBalance, service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error. Internal failures are logged and
// their detail is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	status := statusFor(kind)
	detail := err.Error()

	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"kind":   kind.String(),
		}).WithError(err).Error("Request failed")
	}
	if kind == service.KindInternal {
		detail = "internal error"
	}

	writeFailure(w, status, service.CodeOf(err), detail)
}

func writeFailure(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, failureResponse{
		Success: false,
		Error:   errorBody{Code: code, Detail: detail},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}
