package httpapi

import (
	"crypto/subtle"
	"net/http"

	"voip-routing/internal/config"
)

// XMLCurlBasicAuth guards the XML-fetch endpoints with the credentials the
// switch is configured with in xml_curl.conf.
func XMLCurlBasicAuth(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="fsxml"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.XMLCurlUser)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.XMLCurlPass)) == 1
			if !userOK || !passOK {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
