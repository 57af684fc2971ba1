package app

import (
	"context"
	"time"

	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/log"
	"github.com/ayusman/mimic/internal/retarget"
)

// runPipeline reads camera frames at the current rate, detects landmarks
// and submits them to the worker.
//
// With idle throttling on, the pipeline starts at the idle rate, switches
// to the full rate on the first motion and falls back after IdleTimeout
// without motion. Frames are detected and retargeted at either rate.
func (a *App) runPipeline(ctx context.Context, w *Worker, fps int) {
	var activity *capture.Activity
	if a.config.IdleFPS > 0 {
		activity = capture.NewActivity(a.motion, IdleTimeout)
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}

		cam := a.Camera()
		frame, err := cam.ReadFrame()
		if err != nil {
			log.Warn("error reading frame", "err", err)
			continue
		}

		if activity != nil {
			if active, switched := activity.Observe(frame, time.Now()); switched {
				fps = a.config.IdleFPS
				if active {
					fps = a.config.FPS
				}
				cam.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
				log.Debug("capture rate changed", "active", active, "fps", fps)
			}
		}

		d := a.Detector()
		if d == nil {
			frame.Close()
			continue
		}
		results, err := d.Detect(frame)
		frame.Close()
		if err != nil {
			log.Warn("error detecting landmarks", "err", err)
			continue
		}

		w.Submit(results)
	}
}

// publishLoop hands every processed frame to the publishers until frames
// is closed.
func (a *App) publishLoop(frames <-chan *retarget.Frame) {
	for f := range frames {
		a.publish(f)
	}
}

func (a *App) publish(f *retarget.Frame) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, p := range a.publishers {
		p.Publish(f)
	}
	if a.recorder != nil {
		a.recorder.Publish(f)
	}
}
