package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// CronAuth returns middleware that guards scheduled-trigger endpoints with a
// shared secret. The secret is accepted either as a Bearer token in the
// Authorization header or in the X-Cron-Key header. An empty secret disables
// the check, which only happens in tests; config validation requires one for
// any mode that serves HTTP.
func CronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := extractSecret(r)
			if token == "" {
				writeUnauthorized(w, "missing cron secret")
				return
			}

			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeUnauthorized(w, "invalid cron secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractSecret looks for the secret in the Authorization header (Bearer
// scheme) or in the X-Cron-Key header.
func extractSecret(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if key := r.Header.Get("X-Cron-Key"); key != "" {
		return strings.TrimSpace(key)
	}

	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
