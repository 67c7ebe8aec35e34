package httpapi

import (
	"encoding/json"
	"net/http"
)

func HealthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "db not ok"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
