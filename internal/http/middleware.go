package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/BryanViews002/style-yard-emporium-sub000/internal/auth"
	"github.com/go-chi/chi/v5/middleware"
)

const sessionHeader = "X-Session-ID"

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestIDMiddleware exposes the request ID to handlers and echoes it back.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// IdentityMiddleware reads the guest session header and, when present, the
// bearer token. A token that does not verify is rejected rather than ignored.
func IdentityMiddleware(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.Identity{SessionID: strings.TrimSpace(r.Header.Get(sessionHeader))}

			if header := r.Header.Get("Authorization"); header != "" {
				token, ok := strings.CutPrefix(header, "Bearer ")
				if !ok {
					respondError(w, http.StatusUnauthorized, "unauthorized", "authorization header must be a bearer token")
					return
				}
				claims, err := verifier.Parse(strings.TrimSpace(token))
				if err != nil {
					respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
					return
				}
				id.UserID = claims.Subject
				id.Role = claims.Role
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireSession rejects requests without a guest session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.FromContext(r.Context()).SessionID == "" {
			respondError(w, http.StatusBadRequest, "missing_session", sessionHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCaller accepts either a guest session or a signed-in user.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.FromContext(r.Context())
		if id.SessionID == "" && id.UserID == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing session or user authentication")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.FromContext(r.Context())
		if id.UserID == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
			return
		}
		if !id.IsAdmin() {
			respondError(w, http.StatusForbidden, "permission_denied", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
