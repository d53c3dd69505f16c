package api

import "net/http"

// BoardDependencies defines what the board endpoints need.
type BoardDependencies interface {
	Board() (Snapshot, error)
	Slides() ([]Slide, error)
}

// BoardHandler handles board and slide requests.
type BoardHandler struct {
	deps BoardDependencies
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(deps BoardDependencies) *BoardHandler {
	return &BoardHandler{deps: deps}
}

// HandleGetBoard handles GET /board requests.
func (h *BoardHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_board"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, err := h.deps.Board()
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleGetSlides handles GET /slides requests.
func (h *BoardHandler) HandleGetSlides(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_slides"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	slides, err := h.deps.Slides()
	if err != nil {
		writeDependencyError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, slides)
}
