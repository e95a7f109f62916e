package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders adds security headers to all responses. Nothing served
// here is meant to render in a browser.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}

// ValidateRequest rejects request bodies and common probe patterns; the
// surface is read-only.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			http.Error(w, `{"error":"request body not accepted"}`, http.StatusRequestEntityTooLarge)
			return
		}
		if containsSuspiciousPatterns(r.URL.Path) || containsSuspiciousPatterns(r.URL.RawQuery) {
			http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func containsSuspiciousPatterns(input string) bool {
	if input == "" {
		return false
	}
	lower := strings.ToLower(input)
	for _, s := range []string{"..", "//", "<script", "javascript:", "%00"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
