package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"genai-gateway/telemetry/requestid"
)

const RequestIDHeader = requestid.Header

// maxRequestIDLen evita ecoar valores gigantes vindos do cliente.
const maxRequestIDLen = 128

// RequestID reaproveita X-Request-ID do cliente ou gera um UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestid.WithID(r.Context(), id)))
	})
}
