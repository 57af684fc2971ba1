package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/mimic/internal/plugin"
	"github.com/ayusman/mimic/internal/store"
)

// PluginHandler handles /api/plugins requests.
type PluginHandler struct {
	exporter *plugin.Exporter
}

// NewPluginHandler creates a new PluginHandler.
func NewPluginHandler(e *plugin.Exporter) *PluginHandler {
	return &PluginHandler{exporter: e}
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Formats     []string `json:"formats"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

// ServeHTTP routes GET /api/plugins and POST /api/plugins/discover.
func (h *PluginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/plugins")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
	case path == "discover" && r.Method == http.MethodPost:
		if err := h.exporter.Manager().Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to discover plugins")
			return
		}
	case path == "" || path == "discover":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	plugins := h.exporter.Manager().List()
	response := listPluginsResponse{Plugins: make([]pluginResponse, 0, len(plugins))}
	for _, p := range plugins {
		response.Plugins = append(response.Plugins, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Formats:     p.Manifest.Formats,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

type exportRequest struct {
	Format string          `json:"format"`
	Config json.RawMessage `json:"config,omitempty"`
}

// export handles POST /api/takes/{id}/export and writes the exported
// document as the response body.
func (h *TakeHandler) export(w http.ResponseWriter, r *http.Request, id string) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "No exporters configured")
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Format == "" {
		req.Format = "csv"
	}

	resp, err := h.exporter.Export(r.Context(), id, req.Format, req.Config)
	switch {
	case err == nil:
	case errors.Is(err, plugin.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "Unsupported format: "+req.Format)
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Take not found")
		return
	case errors.Is(err, plugin.ErrExportFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, plugin.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "Export timed out")
		return
	default:
		writeError(w, http.StatusInternalServerError, "Failed to export take")
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+"."+req.Format+`"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, resp.Data)
}
