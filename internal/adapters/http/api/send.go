package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/fielddisplay/internal/domain/model"
)

// SendDependencies defines what the send endpoint needs.
type SendDependencies interface {
	Send(ctx context.Context, msgType string, data any) error
	Connected() bool
}

// SendHandler passes operator messages through to the field server.
type SendHandler struct {
	deps SendDependencies
}

// NewSendHandler creates a new send handler.
func NewSendHandler(deps SendDependencies) *SendHandler {
	return &SendHandler{deps: deps}
}

type sendAck struct {
	Status    string `json:"status"`
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
}

// HandlePostSend handles POST /send requests with a {type, data} body.
// Delivery is best-effort: 202 means the message was accepted, not that
// the field server got it. Connected reports whether the channel was up
// when it was handed over; a message sent while down is dropped.
func (h *SendHandler) HandlePostSend(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_send"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var env model.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(env.Type) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing type")))
		return
	}

	var data any
	if !env.IsNull() {
		data = env.Data
	}
	connected := h.deps.Connected()
	if err := h.deps.Send(r.Context(), env.Type, data); err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sendAck{Status: "accepted", Type: env.Type, Connected: connected})
}
