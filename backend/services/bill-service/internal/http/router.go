package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"utilitybill/backend/services/bill-service/internal/http/middleware"
	"utilitybill/backend/services/bill-service/internal/metrics"
)

// Routes aggregates handlers for HTTP server. Nil handlers are not mounted.
type Routes struct {
	Health    http.HandlerFunc
	Metrics   http.Handler
	Calculate http.HandlerFunc
	GetConfig http.HandlerFunc
	PutConfig http.HandlerFunc
	GetPIN    http.HandlerFunc
	SetPIN    http.HandlerFunc
	Login     http.HandlerFunc
	Logout    http.HandlerFunc
	State     http.HandlerFunc
	Stream    http.HandlerFunc
}

// NewRouter wires all HTTP routes. Each route is instrumented under its path.
func NewRouter(routes Routes, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	handle := func(path string, byMethod map[string]http.Handler) {
		for verb, h := range byMethod {
			if h == nil {
				delete(byMethod, verb)
			}
		}
		if len(byMethod) == 0 {
			return
		}
		mux.Handle(path, middleware.Instrument(m, path)(methods(byMethod)))
	}

	handle("/health", map[string]http.Handler{http.MethodGet: handlerOrNil(routes.Health)})
	if routes.Metrics != nil {
		mux.Handle("/metrics", methods(map[string]http.Handler{http.MethodGet: routes.Metrics}))
	}

	handle("/api/calculate", map[string]http.Handler{http.MethodPost: handlerOrNil(routes.Calculate)})
	handle("/api/config", map[string]http.Handler{
		http.MethodGet: handlerOrNil(routes.GetConfig),
		http.MethodPut: handlerOrNil(routes.PutConfig),
	})
	handle("/api/config/pin", map[string]http.Handler{
		http.MethodGet:  handlerOrNil(routes.GetPIN),
		http.MethodPost: handlerOrNil(routes.SetPIN),
	})
	handle("/api/config/stream", map[string]http.Handler{http.MethodGet: handlerOrNil(routes.Stream)})
	handle("/api/admin/session", map[string]http.Handler{
		http.MethodPost:   handlerOrNil(routes.Login),
		http.MethodDelete: handlerOrNil(routes.Logout),
	})
	handle("/api/admin/state", map[string]http.Handler{http.MethodGet: handlerOrNil(routes.State)})

	return mux
}

func handlerOrNil(h http.HandlerFunc) http.Handler {
	if h == nil {
		return nil
	}
	return h
}

// methods dispatches on the request method and answers 405 with an Allow header otherwise.
func methods(byMethod map[string]http.Handler) http.Handler {
	allowed := make([]string, 0, len(byMethod))
	for verb := range byMethod {
		allowed = append(allowed, verb)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
