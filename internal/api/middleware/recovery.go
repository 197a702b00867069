package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/medicapp/backend/internal/application/services"
	"github.com/medicapp/backend/internal/infrastructure/observability"
)

// RecoveryMiddleware turns a handler panic into the generic 500 chat reply
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			observability.LoggerFromContext(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("recovered from handler panic")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"reply": services.ReplyInternalError})
		}()

		next.ServeHTTP(w, r)
	})
}
