package obs

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RouteLabel returns the chi pattern that served r, such as
// "/api/v1/sessions/{id}", so metrics and spans never carry session ids. The
// pattern is only known after the router dispatched the request; fallback is
// returned before that or for unmatched paths.
func RouteLabel(r *http.Request, fallback string) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return fallback
}

// SessionID returns the quote session id routed to r, if any.
func SessionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParamFromCtx(r.Context(), "id"))
}
