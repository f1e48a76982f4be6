package myhttp

import (
	"net/http"

	"golang.org/x/sync/semaphore"
)

// Limit bounds the number of concurrent requests served by next. Requests
// whose context ends while waiting get 503.
func Limit(n int, next http.Handler) http.Handler {
	if n < 1 {
		n = 1
	}
	sem := semaphore.NewWeighted(int64(n))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := sem.Acquire(r.Context(), 1); err != nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer sem.Release(1)
		next.ServeHTTP(w, r)
	})
}
