package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/baharkarakas/imagegen-backend/internal/api/httpx"
)

const requestIDHeader = "X-Request-Id"

// RequestID reuses a well formed incoming id and otherwise mints one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(httpx.WithRequestID(r.Context(), id)))
	})
}
