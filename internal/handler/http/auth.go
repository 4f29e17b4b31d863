package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofrs/uuid"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Identity trusts the verified user id injected by the upstream auth
// gateway. Requests without the header proceed as anonymous.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("X-User-ID"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				r = r.WithContext(context.WithValue(r.Context(), userIDKey, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func userIDFrom(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(userIDKey).(int64)
	return id, ok
}

// sessionIDFrom reads the anonymous cart session from the X-Session-ID
// header or the sessionId query parameter.
func sessionIDFrom(r *http.Request) uuid.UUID {
	raw := r.Header.Get("X-Session-ID")
	if raw == "" {
		raw = r.URL.Query().Get("sessionId")
	}
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
