package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mimic/internal/plugin"
	"github.com/ayusman/mimic/internal/store"
)

// TakeHandler handles HTTP requests for recorded takes.
type TakeHandler struct {
	store    *store.Store
	exporter *plugin.Exporter
}

// NewTakeHandler creates a new TakeHandler with the given store.
func NewTakeHandler(s *store.Store) *TakeHandler {
	return &TakeHandler{store: s}
}

// SetExporter enables POST /api/takes/{id}/export.
func (h *TakeHandler) SetExporter(e *plugin.Exporter) {
	h.exporter = e
}

// ServeHTTP routes:
//
//	GET    /api/takes              list, optionally ?skeleton_id=
//	GET    /api/takes/{id}         one take
//	DELETE /api/takes/{id}         delete a take and its frames
//	GET    /api/takes/{id}/frames  recorded frames in order
//	POST   /api/takes/{id}/export  convert through an exporter plugin
func (h *TakeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/takes")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/frames"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.frames(w, r, id)
		return
	}

	if id, ok := strings.CutSuffix(path, "/export"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type takeResponse struct {
	ID         string `json:"id"`
	SkeletonID string `json:"skeleton_id"`
	Name       string `json:"name"`
	FrameCount int    `json:"frame_count"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type listTakesResponse struct {
	Takes []takeResponse `json:"takes"`
}

type framesResponse struct {
	TakeID string            `json:"take_id"`
	Frames []json.RawMessage `json:"frames"`
}

func toTakeResponse(t *store.Take) takeResponse {
	return takeResponse{
		ID:         t.ID,
		SkeletonID: t.SkeletonID,
		Name:       t.Name,
		FrameCount: t.FrameCount,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  t.UpdatedAt.Format(time.RFC3339),
	}
}

// list handles GET /api/takes, optionally filtered by ?skeleton_id=.
func (h *TakeHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		takes []*store.Take
		err   error
	)
	if skeletonID := r.URL.Query().Get("skeleton_id"); skeletonID != "" {
		takes, err = h.store.Takes().ListBySkeleton(skeletonID)
	} else {
		takes, err = h.store.Takes().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list takes")
		return
	}

	response := listTakesResponse{Takes: make([]takeResponse, 0, len(takes))}
	for _, t := range takes {
		response.Takes = append(response.Takes, toTakeResponse(t))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/takes/{id}.
func (h *TakeHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	take, err := h.store.Takes().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Take not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get take")
		return
	}

	writeJSON(w, http.StatusOK, toTakeResponse(take))
}

// frames handles GET /api/takes/{id}/frames and returns the recorded
// frames in order.
func (h *TakeHandler) frames(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Takes().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Take not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get take")
		return
	}

	frames, err := h.store.Takes().Frames(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get frames")
		return
	}

	response := framesResponse{TakeID: id, Frames: make([]json.RawMessage, 0, len(frames))}
	for _, f := range frames {
		response.Frames = append(response.Frames, f.Data)
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/takes/{id}.
func (h *TakeHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Takes().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Take not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete take")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
