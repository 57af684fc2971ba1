package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/mimic/internal/store"
)

// ErrExportFailed wraps the error an exporter reported in its Response.
var ErrExportFailed = errors.New("export failed")

// Exporter loads stored takes and hands them to the exporter plugins.
type Exporter struct {
	manager  *Manager
	executor *Executor
	store    *store.Store
}

// NewExporter creates an Exporter.
func NewExporter(m *Manager, e *Executor, s *store.Store) *Exporter {
	return &Exporter{manager: m, executor: e, store: s}
}

// Manager returns the plugin manager.
func (x *Exporter) Manager() *Manager { return x.manager }

// Export converts take takeID to format. It returns store.ErrNotFound for
// an unknown take and ErrUnsupportedFormat when no plugin writes format.
func (x *Exporter) Export(ctx context.Context, takeID, format string, config json.RawMessage) (*Response, error) {
	p, err := x.manager.ForFormat(format)
	if err != nil {
		return nil, err
	}

	take, err := x.store.Takes().GetByID(takeID)
	if err != nil {
		return nil, err
	}
	sk, err := x.store.Skeletons().GetByID(take.SkeletonID)
	if err != nil {
		return nil, fmt.Errorf("skeleton of take %s: %w", takeID, err)
	}
	frames, err := x.store.Takes().Frames(takeID)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Format: format,
		Take: TakeInfo{
			ID:         take.ID,
			Name:       take.Name,
			SkeletonID: take.SkeletonID,
			FrameCount: take.FrameCount,
		},
		Hierarchy: sk.Hierarchy,
		Frames:    make([]json.RawMessage, 0, len(frames)),
		Config:    config,
	}
	for _, f := range frames {
		req.Frames = append(req.Frames, f.Data)
	}

	resp, err := x.executor.Execute(ctx, p, req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s: %s", ErrExportFailed, p.Manifest.Name, resp.Error)
	}
	return resp, nil
}
