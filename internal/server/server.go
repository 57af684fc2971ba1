// Package server provides the HTTP server: the REST API and the live
// rotation stream.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/mimic/internal/plugin"
	"github.com/ayusman/mimic/internal/server/api"
	"github.com/ayusman/mimic/internal/store"
)

// Config selects which parts of the API are mounted. Nil dependencies
// leave their routes unregistered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Pipeline  api.Pipeline
	Rotations *RotationsHandler
	Exporter  *plugin.Exporter
}

// Server is the mimic HTTP handler.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Clients *int   `json:"clients,omitempty"`
}

func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.routes()
	return s
}

// mount registers h for prefix and everything below it.
func (s *Server) mount(prefix string, h http.Handler) {
	s.mux.Handle(prefix, h)
	s.mux.Handle(prefix+"/", h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if st := s.config.Store; st != nil {
		takes := api.NewTakeHandler(st)
		if s.config.Exporter != nil {
			takes.SetExporter(s.config.Exporter)
		}
		s.mount("/api/skeletons", api.NewSkeletonHandler(st))
		s.mount("/api/takes", takes)
	}
	if s.config.Exporter != nil {
		s.mount("/api/plugins", api.NewPluginHandler(s.config.Exporter))
	}
	if s.config.Pipeline != nil {
		s.mount("/api/pipeline", api.NewPipelineHandler(s.config.Pipeline))
	}
	if s.config.Rotations != nil {
		s.mux.Handle("/api/rotations", s.config.Rotations)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth reports uptime and, with a rotation stream mounted, the
// number of connected viewers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Millisecond).String(),
	}
	if s.config.Rotations != nil {
		n := s.config.Rotations.Clients()
		resp.Clients = &n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
