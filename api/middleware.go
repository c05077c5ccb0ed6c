package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("HTTP request")
	})
}

func (s *APIServer) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.jwtSecret) == 0 {
			writeFailure(w, http.StatusForbidden, "admin_disabled", "admin access is not configured")
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeFailure(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeFailure(w, http.StatusUnauthorized, "unauthorized", "malformed authorization header")
			return
		}

		claims, err := parseAdminToken(parts[1], s.jwtSecret)
		if errors.Is(err, errNotAdmin) {
			writeFailure(w, http.StatusForbidden, "forbidden", err.Error())
			return
		}
		if err != nil {
			writeFailure(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		log.WithFields(log.Fields{
			"subject": claims["sub"],
			"method":  r.Method,
			"path":    r.URL.Path,
		}).Debug("Admin request authorized")
		next.ServeHTTP(w, r)
	})
}
