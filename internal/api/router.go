package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openhomelab/webthingd/internal/thing"
)

// buildRouter assembles the route tree. A single thing is served at the root
// path; multiple things live under their numeric index with a listing
// endpoint at the root.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	if len(s.things) == 1 {
		t := s.things[0]
		r.Get("/", s.handleThing(t))
		s.mountThingRoutes(r, t)
		return r
	}

	r.Get("/", s.handleThings)
	for _, t := range s.things {
		r.Route(t.HrefPrefix(), func(sub chi.Router) {
			sub.Get("/", s.handleThing(t))
			s.mountThingRoutes(sub, t)
		})
	}
	return r
}

// mountThingRoutes wires the property, action, and event endpoints for one
// thing onto the given router.
func (s *Server) mountThingRoutes(r chi.Router, t *thing.Thing) {
	r.Get("/properties", s.handleProperties(t))
	r.Get("/properties/{name}", s.handleGetProperty(t))
	r.Put("/properties/{name}", s.handlePutProperty(t))

	r.Get("/actions", s.handleActions(t))
	r.Get("/actions/{name}", s.handleActionQueue(t))
	r.Post("/actions/{name}", s.handleRequestAction(t))
	r.Get("/actions/{name}/{id}", s.handleGetAction(t))
	r.Delete("/actions/{name}/{id}", s.handleCancelAction(t))

	r.Get("/events", s.handleEvents(t))
	r.Get("/events/{name}", s.handleEventLog(t))
}
