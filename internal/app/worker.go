package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/log"
	"github.com/ayusman/mimic/internal/retarget"
	"github.com/ayusman/mimic/internal/skeleton"
)

// FrameBufferSize is how many processed frames wait for the consumer
// before the oldest is dropped.
const FrameBufferSize = 8

// WorkerStats counts what happened to submitted frames.
type WorkerStats struct {
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Skipped   uint64 `json:"skipped"`
}

type bindRequest struct {
	root   *skeleton.Node
	rebind bool
	done   chan error
}

// Worker owns a retargeting engine and runs it on a single goroutine.
// Submissions are latest-wins: a frame still waiting when the next one
// arrives is dropped. Results come out of Frames in submission order.
type Worker struct {
	engine *retarget.Engine

	submitMu sync.Mutex
	in       chan *detector.Results
	out      chan *retarget.Frame
	binds    chan bindRequest

	latest    atomic.Pointer[retarget.Frame]
	processed atomic.Uint64
	dropped   atomic.Uint64
	skipped   atomic.Uint64
}

// NewWorker wraps engine. The engine must not be used directly afterwards.
func NewWorker(engine *retarget.Engine) *Worker {
	return &Worker{
		engine: engine,
		in:     make(chan *detector.Results, 1),
		out:    make(chan *retarget.Frame, FrameBufferSize),
		binds:  make(chan bindRequest),
	}
}

// Submit hands a snapshot of r to the worker without blocking.
func (w *Worker) Submit(r *detector.Results) {
	snap := r.Clone()

	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	select {
	case w.in <- snap:
		return
	default:
	}
	select {
	case <-w.in:
		w.dropped.Add(1)
	default:
	}
	// Submitters are serialized, so the slot is free now.
	w.in <- snap
}

// Frames delivers processed frames. It is closed when Run returns.
func (w *Worker) Frames() <-chan *retarget.Frame { return w.out }

// Latest returns the most recent processed frame, or nil.
func (w *Worker) Latest() *retarget.Frame { return w.latest.Load() }

// Stats returns the frame counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Processed: w.processed.Load(),
		Dropped:   w.dropped.Load(),
		Skipped:   w.skipped.Load(),
	}
}

// Bind binds root unless a skeleton is already bound. It waits for Run
// to pick the request up.
func (w *Worker) Bind(ctx context.Context, root *skeleton.Node) error {
	return w.bind(ctx, bindRequest{root: root})
}

// Rebind replaces the bound skeleton.
func (w *Worker) Rebind(ctx context.Context, root *skeleton.Node) error {
	return w.bind(ctx, bindRequest{root: root, rebind: true})
}

func (w *Worker) bind(ctx context.Context, req bindRequest) error {
	req.done = make(chan error, 1)
	select {
	case w.binds <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes submissions until ctx is cancelled. It may be called once.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.out)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.binds:
			if req.rebind {
				req.done <- w.engine.Rebind(req.root)
			} else {
				req.done <- w.engine.Bind(req.root)
			}
		case r := <-w.in:
			w.process(r)
		}
	}
}

func (w *Worker) process(r *detector.Results) {
	frame, err := w.engine.Process(r)
	if err != nil {
		n := w.skipped.Add(1)
		if errors.Is(err, retarget.ErrNotBound) {
			log.Debug("frame skipped", "err", err, "skipped", n)
		} else {
			log.Warn("frame skipped", "err", err, "skipped", n)
		}
		return
	}
	w.processed.Add(1)
	w.latest.Store(frame)

	select {
	case w.out <- frame:
		return
	default:
	}
	select {
	case <-w.out:
		w.dropped.Add(1)
	default:
	}
	w.out <- frame
}
