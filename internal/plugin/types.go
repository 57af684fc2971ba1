// Package plugin runs external exporters that convert recorded takes into
// other formats. An exporter is an executable in its own directory next
// to a plugin.json manifest; it reads one Request as JSON on stdin and
// writes one Response as JSON on stdout.
package plugin

import "encoding/json"

// Manifest describes an exporter and the formats it can write.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Formats      []string        `json:"formats"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the exporter declares format.
func (m Manifest) Supports(format string) bool {
	for _, f := range m.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// TakeInfo identifies the take being exported.
type TakeInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SkeletonID string `json:"skeleton_id"`
	FrameCount int    `json:"frame_count"`
}

// Request is sent to an exporter.
type Request struct {
	Format    string            `json:"format"`
	Take      TakeInfo          `json:"take"`
	Hierarchy json.RawMessage   `json:"hierarchy"`
	Frames    []json.RawMessage `json:"frames"`
	Config    json.RawMessage   `json:"config,omitempty"`
}

// Response is the exporter's reply. Data holds the exported document as a
// JSON string.
type Response struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Data        string `json:"data,omitempty"`
}

// Plugin is a discovered exporter with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
