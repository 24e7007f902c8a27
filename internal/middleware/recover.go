package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"
)

// Recover turns a handler panic into a 500 instead of a dropped connection
func Recover(logger arbor.ILogger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Str("path", r.URL.Path).
						Str("panic", fmt.Sprint(rec)).
						Msg("Recovered from handler panic")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{"detail": "Internal Server Error"})
				}
			}()
			next(w, r)
		}
	}
}
