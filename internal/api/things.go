package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openhomelab/webthingd/internal/thing"
)

// handleThings serves the listing of every hosted thing's description.
func (s *Server) handleThings(w http.ResponseWriter, r *http.Request) {
	descs := make([]map[string]any, 0, len(s.things))
	for _, t := range s.things {
		descs = append(descs, t.Description())
	}
	writeJSON(w, http.StatusOK, descs)
}

// handleThing serves one thing's description, or upgrades the connection
// into a push channel when the client asks for one.
func (s *Server) handleThing(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isWebSocketRequest(r) {
			s.handleSubscribe(t, w, r)
			return
		}
		writeJSON(w, http.StatusOK, t.Description())
	}
}

// handleProperties serves the name-to-value map of all properties.
func (s *Server) handleProperties(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.Properties())
	}
}

// handleGetProperty serves a single property value.
func (s *Server) handleGetProperty(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		v, err := t.GetProperty(name)
		if err != nil {
			writeNotFound(w, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{name: v})
	}
}

// handlePutProperty validates and applies a property write. The response
// echoes the accepted value; a rejected write leaves the stored value alone.
func (s *Server) handlePutProperty(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		v, ok := body[name]
		if !ok {
			writeBadRequest(w, "body must contain the property name as key")
			return
		}

		if err := t.SetProperty(name, v); err != nil {
			writeThingError(w, err)
			return
		}

		current, err := t.GetProperty(name)
		if err != nil {
			writeNotFound(w, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{name: current})
	}
}

// handleActions serves descriptions of every logged action.
func (s *Server) handleActions(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.Actions(""))
	}
}

// handleActionQueue serves the logged actions of one name.
func (s *Server) handleActionQueue(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.Actions(chi.URLParam(r, "name")))
	}
}

// handleRequestAction creates an action from the request input and schedules
// it. The 201 body carries the action description including id and href; at
// that point the action is already pending.
func (s *Server) handleRequestAction(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var input any
		if r.ContentLength != 0 {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeBadRequest(w, "invalid JSON body")
				return
			}
			if wrapped, ok := body[name].(map[string]any); ok {
				input = wrapped["input"]
			} else {
				input = body["input"]
			}
		}

		a, err := t.RequestAction(name, input)
		if err != nil {
			writeThingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a.Describe(t.HrefPrefix()))
	}
}

// handleGetAction serves one action record by name and id.
func (s *Server) handleGetAction(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := t.GetAction(chi.URLParam(r, "name"), chi.URLParam(r, "id"))
		if err != nil {
			writeNotFound(w, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, a.Describe(t.HrefPrefix()))
	}
}

// handleCancelAction requests cancellation of an in-flight action. An action
// already in a terminal state reports 404: its record is immutable.
func (s *Server) handleCancelAction(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := t.CancelAction(chi.URLParam(r, "name"), chi.URLParam(r, "id")); err != nil {
			writeNotFound(w, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleEvents serves descriptions of every retained event.
func (s *Server) handleEvents(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.Events(""))
	}
}

// handleEventLog serves the retained events of one name.
func (s *Server) handleEventLog(t *thing.Thing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, t.Events(chi.URLParam(r, "name")))
	}
}

// writeThingError maps runtime errors onto HTTP status codes: schema and
// input violations are the client's fault, unknown names are 404, anything
// else is a 500.
func writeThingError(w http.ResponseWriter, err error) {
	switch {
	case thing.IsValidation(err):
		writeValidationError(w, err.Error())
	case thing.IsNotFound(err):
		writeNotFound(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
