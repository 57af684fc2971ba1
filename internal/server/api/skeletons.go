// Package api provides the HTTP API handlers for skeletons, recorded takes
// and the running pipeline.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mimic/internal/skeleton"
	"github.com/ayusman/mimic/internal/store"
)

// SkeletonHandler handles HTTP requests for skeleton resources.
type SkeletonHandler struct {
	store *store.Store
}

// NewSkeletonHandler creates a new SkeletonHandler with the given store.
func NewSkeletonHandler(s *store.Store) *SkeletonHandler {
	return &SkeletonHandler{store: s}
}

// ServeHTTP routes /api/skeletons and /api/skeletons/{id}.
func (h *SkeletonHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/skeletons")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
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

// Request and response types

type createSkeletonRequest struct {
	Name      string          `json:"name"`
	Hierarchy json.RawMessage `json:"hierarchy"`
}

type skeletonResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Bones     int             `json:"bones"`
	Hierarchy json.RawMessage `json:"hierarchy,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type listSkeletonsResponse struct {
	Skeletons []skeletonResponse `json:"skeletons"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toSkeletonResponse converts a store.Skeleton. The hierarchy is only
// included for single-item responses.
func toSkeletonResponse(sk *store.Skeleton, withHierarchy bool) skeletonResponse {
	resp := skeletonResponse{
		ID:        sk.ID,
		Name:      sk.Name,
		CreatedAt: sk.CreatedAt.Format(time.RFC3339),
		UpdatedAt: sk.UpdatedAt.Format(time.RFC3339),
	}
	if root, err := skeleton.ParseHierarchy(sk.Hierarchy); err == nil {
		root.Walk(func(_, _ *skeleton.Node) { resp.Bones++ })
	}
	if withHierarchy {
		resp.Hierarchy = sk.Hierarchy
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/skeletons.
func (h *SkeletonHandler) list(w http.ResponseWriter, r *http.Request) {
	skeletons, err := h.store.Skeletons().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list skeletons")
		return
	}

	response := listSkeletonsResponse{
		Skeletons: make([]skeletonResponse, 0, len(skeletons)),
	}
	for _, sk := range skeletons {
		response.Skeletons = append(response.Skeletons, toSkeletonResponse(sk, false))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/skeletons/{id}.
func (h *SkeletonHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sk, err := h.store.Skeletons().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Skeleton not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get skeleton")
		return
	}

	writeJSON(w, http.StatusOK, toSkeletonResponse(sk, true))
}

// create handles POST /api/skeletons. The hierarchy must be a valid bone
// tree.
func (h *SkeletonHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSkeletonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if len(req.Hierarchy) == 0 {
		writeError(w, http.StatusBadRequest, "Hierarchy is required")
		return
	}
	if _, err := skeleton.ParseHierarchy(req.Hierarchy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.Skeletons().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Skeleton name already exists")
		return
	}

	sk := &store.Skeleton{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Hierarchy: req.Hierarchy,
	}
	if err := h.store.Skeletons().Create(sk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create skeleton")
		return
	}

	writeJSON(w, http.StatusCreated, toSkeletonResponse(sk, true))
}

// delete handles DELETE /api/skeletons/{id}. Takes of the skeleton go
// with it.
func (h *SkeletonHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Skeletons().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Skeleton not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete skeleton")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
