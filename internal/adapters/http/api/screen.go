package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/fielddisplay/internal/domain/screen"
)

const maxBodyBytes = 1 << 16

// ScreenDependencies defines what the screen endpoint needs.
type ScreenDependencies interface {
	RequestScreen(ctx context.Context, target screen.Screen) error
	Screen() (Status, error)
}

// ScreenHandler handles screen requests.
type ScreenHandler struct {
	deps ScreenDependencies
}

// NewScreenHandler creates a new screen handler.
func NewScreenHandler(deps ScreenDependencies) *ScreenHandler {
	return &ScreenHandler{deps: deps}
}

// screenRequest is the body of POST /screen.
type screenRequest struct {
	Screen string `json:"screen"`
}

func (r screenRequest) validate() (screen.Screen, error) {
	name := strings.TrimSpace(r.Screen)
	if name == "" {
		return "", errors.New("missing screen")
	}
	return screen.Parse(name)
}

type screenAck struct {
	Status string        `json:"status"`
	Screen screen.Screen `json:"screen"`
}

// HandleScreen handles GET /screen and POST /screen.
func (h *ScreenHandler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w)
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ScreenHandler) handleGet(w http.ResponseWriter) {
	const op = "api.get_screen"
	st, err := h.deps.Screen()
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ScreenHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_screen"
	var req screenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	target, err := req.validate()
	if err != nil {
		code := "bad_request"
		if errors.Is(err, screen.ErrUnknownScreen) {
			code = "unknown_screen"
		}
		writeError(w, http.StatusBadRequest, code, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.RequestScreen(r.Context(), target); err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, screenAck{Status: "queued", Screen: target})
}
