package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/philly/ipcbus/internal/platform/apperror"
	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/validator"
)

const maxEventBody = 1 << 20

// EventsHandler lets operators raise events on the coordinator bus.
type EventsHandler struct {
	*BaseHandler
	registry *eventbus.Registry
}

func NewEventsHandler(base *BaseHandler, registry *eventbus.Registry) *EventsHandler {
	return &EventsHandler{BaseHandler: base, registry: registry}
}

// BroadcastResponse acknowledges a broadcast.
type BroadcastResponse struct {
	EventType string `json:"event_type"`
	Args      int    `json:"args"`
}

// Broadcast raises the event named by the {type} URL parameter. The body,
// when present, is a JSON array of positional arguments.
func (h *EventsHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	t := eventbus.EventType(chi.URLParam(r, "type"))
	if err := validator.ValidateEventType(string(t), validator.MaxEventTypeLength); err != nil {
		h.WriteJSONError(w, r, string(apperror.CodeInvalidArgument), err.Error(), http.StatusBadRequest)
		return
	}

	var args []json.RawMessage
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		h.WriteJSONError(w, r, string(apperror.CodeInvalidArgument), "unreadable request body", http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			h.WriteJSONError(w, r, string(apperror.CodeInvalidArgument), "body must be a JSON array of arguments", http.StatusBadRequest)
			return
		}
	}

	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
	}

	err = h.registry.Instance().Broadcast(r.Context(), t, vals...)
	switch {
	case err == nil:
	case errors.Is(err, eventbus.ErrClosed), errors.Is(err, eventbus.ErrNotInitialized):
		h.HandleError(w, r, err)
		return
	default:
		// Local listeners ran; some satellites did not get the event.
		h.HandleError(w, r, apperror.Wrap(err, apperror.CodeRemoteFailure, apperror.ReasonGeneral,
			"event not delivered to every satellite"))
		return
	}

	h.WriteJSONResponse(w, r, BroadcastResponse{EventType: string(t), Args: len(args)}, http.StatusAccepted)
}
