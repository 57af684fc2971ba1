package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mimic/internal/app"
	"github.com/ayusman/mimic/internal/retarget"
	"github.com/ayusman/mimic/internal/skeleton"
	"github.com/ayusman/mimic/internal/store"
)

// Pipeline is the part of the running application the API controls.
// *app.App implements it.
type Pipeline interface {
	Status() app.Status
	SetEnabled(enabled bool)
	Latest() *retarget.Frame
	LoadSkeleton(ctx context.Context, ref string) error
	StartRecording(name string) (*store.Take, error)
	StopRecording() (*store.Take, error)
}

// bindTimeout bounds how long a skeleton switch waits for the worker.
const bindTimeout = 5 * time.Second

var pipelineRoutes = map[string]string{
	"":            http.MethodGet,
	"enable":      http.MethodPost,
	"disable":     http.MethodPost,
	"rotations":   http.MethodGet,
	"skeleton":    http.MethodPost,
	"record":      http.MethodPost,
	"record/stop": http.MethodPost,
}

// PipelineHandler handles /api/pipeline requests.
type PipelineHandler struct {
	pipeline Pipeline
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(p Pipeline) *PipelineHandler {
	return &PipelineHandler{pipeline: p}
}

// ServeHTTP routes:
//
//	GET  /api/pipeline              status
//	POST /api/pipeline/enable       start processing frames
//	POST /api/pipeline/disable      stop processing frames
//	GET  /api/pipeline/rotations    latest frame
//	POST /api/pipeline/skeleton     bind a stored skeleton {"skeleton": id or name}
//	POST /api/pipeline/record       start a take {"name": ...}
//	POST /api/pipeline/record/stop  finish the take
func (h *PipelineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/pipeline")
	path = strings.TrimPrefix(path, "/")

	method, ok := pipelineRoutes[path]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch path {
	case "":
		writeJSON(w, http.StatusOK, h.pipeline.Status())
	case "enable", "disable":
		h.pipeline.SetEnabled(path == "enable")
		writeJSON(w, http.StatusOK, h.pipeline.Status())
	case "rotations":
		h.rotations(w, r)
	case "skeleton":
		h.skeleton(w, r)
	case "record":
		h.record(w, r)
	case "record/stop":
		h.stopRecord(w, r)
	}
}

type bindSkeletonRequest struct {
	Skeleton string `json:"skeleton"`
}

type recordRequest struct {
	Name string `json:"name"`
}

// rotations handles GET /api/pipeline/rotations.
func (h *PipelineHandler) rotations(w http.ResponseWriter, r *http.Request) {
	f := h.pipeline.Latest()
	if f == nil {
		writeError(w, http.StatusNotFound, "No frame processed yet")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// skeleton handles POST /api/pipeline/skeleton.
func (h *PipelineHandler) skeleton(w http.ResponseWriter, r *http.Request) {
	var req bindSkeletonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Skeleton == "" {
		writeError(w, http.StatusBadRequest, "Skeleton is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bindTimeout)
	defer cancel()

	err := h.pipeline.LoadSkeleton(ctx, req.Skeleton)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.pipeline.Status())
	case errors.Is(err, app.ErrSkeletonNotFound):
		writeError(w, http.StatusNotFound, "Skeleton not found")
	case errors.Is(err, app.ErrRecordingActive):
		writeError(w, http.StatusConflict, "Stop the recording before switching skeletons")
	case errors.Is(err, skeleton.ErrInvalidHierarchy):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, app.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, "No store configured")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to bind skeleton")
	}
}

// record handles POST /api/pipeline/record. The body is optional.
func (h *PipelineHandler) record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	take, err := h.pipeline.StartRecording(req.Name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, toTakeResponse(take))
	case errors.Is(err, app.ErrRecording):
		writeError(w, http.StatusConflict, "Already recording")
	case errors.Is(err, app.ErrUnsavedSkeleton):
		writeError(w, http.StatusConflict, "Bound skeleton is not stored")
	case errors.Is(err, app.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, "No store configured")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to start recording")
	}
}

// stopRecord handles POST /api/pipeline/record/stop.
func (h *PipelineHandler) stopRecord(w http.ResponseWriter, r *http.Request) {
	take, err := h.pipeline.StopRecording()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toTakeResponse(take))
	case errors.Is(err, app.ErrNotRecording):
		writeError(w, http.StatusConflict, "Not recording")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to stop recording")
	}
}
