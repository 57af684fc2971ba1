package app

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ayusman/mimic/internal/log"
	"github.com/ayusman/mimic/internal/retarget"
	"github.com/ayusman/mimic/internal/store"
)

// Publisher receives every processed frame, in order, from the publish
// loop. Publish must not block for long.
type Publisher interface {
	Publish(f *retarget.Frame)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(f *retarget.Frame)

// Publish calls fn(f).
func (fn PublisherFunc) Publish(f *retarget.Frame) { fn(f) }

// RecordBatchSize is how many frames a Recorder buffers before writing.
const RecordBatchSize = 30

// Recorder writes published frames into a take, in batches.
type Recorder struct {
	takes  *store.TakeRepository
	takeID string

	mu     sync.Mutex
	buf    []store.TakeFrame
	failed error
}

// NewRecorder records into the existing take takeID.
func NewRecorder(takes *store.TakeRepository, takeID string) *Recorder {
	return &Recorder{
		takes:  takes,
		takeID: takeID,
		buf:    make([]store.TakeFrame, 0, RecordBatchSize),
	}
}

// TakeID returns the take being recorded.
func (r *Recorder) TakeID() string { return r.takeID }

// Publish buffers f and writes a batch when the buffer is full. After a
// write error the recorder stops recording and Flush reports the error.
func (r *Recorder) Publish(f *retarget.Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Warn("frame not recorded", "take", r.takeID, "seq", f.Seq, "err", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed != nil {
		return
	}
	r.buf = append(r.buf, store.TakeFrame{TakeID: r.takeID, Seq: int64(f.Seq), Data: data})
	if len(r.buf) >= RecordBatchSize {
		if err := r.flushLocked(); err != nil {
			log.Error("recording stopped", "take", r.takeID, "err", err)
		}
	}
}

// Flush writes any buffered frames.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed != nil {
		return r.failed
	}
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	if len(r.buf) == 0 {
		return nil
	}
	if err := r.takes.AppendFrames(r.takeID, r.buf); err != nil {
		r.failed = fmt.Errorf("record take %s: %w", r.takeID, err)
		return r.failed
	}
	r.buf = r.buf[:0]
	return nil
}
