package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds handler execution; a handler that overruns gets a 503 with a
// JSON error body and its late writes are discarded.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.TimeoutHandler(next, timeout, `{"error":"request timeout"}`)
	}
}
