package http

import (
	"net/http"
	"strings"
	"time"

	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/security"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// authMiddleware requires a staff token on every route except the health
// check. Viewers may only use safe methods. A nil token manager disables it.
func authMiddleware(tm security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tm == nil || r.URL.Path == healthPath {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if len(header) <= 7 || !strings.EqualFold(header[:7], "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authorization token is not provided"})
				return
			}
			claims, err := tm.ValidateToken(header[7:])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
				return
			}
			if !isSafeMethod(r.Method) && !claims.Role.CanWrite() {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "operator token required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
