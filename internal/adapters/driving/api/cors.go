package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/urfave/negroni"
)

// NewCORS returns middleware that allows the listed origins.
// Preflight requests from an allowed origin are answered without reaching the router.
func NewCORS(origins []string) negroni.Handler {
	allowAll := slices.Contains(origins, "*")

	return negroni.HandlerFunc(func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		origin := r.Header.Get("Origin")
		if origin == "" || (!allowAll && !slices.Contains(origins, origin)) {
			next(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", strings.Join([]string{
				http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions,
			}, ", "))
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	})
}
