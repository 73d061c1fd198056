package middleware

import "net/http"

// MaxBody caps request bodies at limitKB kilobytes. Reads past the cap fail
// and the decoder surfaces them as invalid payloads.
func MaxBody(limitKB int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limitKB <= 0 {
			return next
		}
		limit := int64(limitKB) * 1024
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
