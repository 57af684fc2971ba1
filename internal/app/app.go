// Package app runs the capture, detection and retargeting pipeline and
// hands the resulting bone rotations to publishers.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/log"
	"github.com/ayusman/mimic/internal/retarget"
	"github.com/ayusman/mimic/internal/skeleton"
	"github.com/ayusman/mimic/internal/store"
)

// Pipeline timing defaults.
const (
	// DefaultIdleFPS is the capture rate while the subject stands still.
	DefaultIdleFPS = 5
	// IdleTimeout is how long without motion before dropping to the idle rate.
	IdleTimeout = 2 * time.Second
	// DefaultMotionThreshold is the percentage of changed pixels counted as motion.
	DefaultMotionThreshold = 1.0
	// HumanoidSkeletonName names the built-in skeleton when it is stored.
	HumanoidSkeletonName = "humanoid"
)

var (
	ErrNoStore          = errors.New("app: no store configured")
	ErrRecording        = errors.New("app: already recording")
	ErrNotRecording     = errors.New("app: not recording")
	ErrUnsavedSkeleton  = errors.New("app: bound skeleton is not stored")
	ErrSkeletonNotFound = errors.New("app: skeleton not found")
	// ErrRecordingActive is returned when the skeleton is switched while a
	// take is being recorded against the bound one.
	ErrRecordingActive = errors.New("app: cannot switch skeleton while recording")
)

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	CameraID     int
	MotionThresh float64
	Detector     detector.Config

	// FPS is the capture rate while the subject moves. Zero means
	// capture.DefaultFPS.
	FPS int

	// IdleFPS is the capture rate without motion. Zero or less disables
	// idle throttling.
	IdleFPS int

	// Engine tunes the retargeting engine; nil means retarget.DefaultConfig.
	Engine *retarget.Config
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Enabled    bool        `json:"enabled"`
	Running    bool        `json:"running"`
	SkeletonID string      `json:"skeleton_id,omitempty"`
	TakeID     string      `json:"take_id,omitempty"`
	LastSeq    uint64      `json:"last_seq"`
	Stats      WorkerStats `json:"stats"`
}

// App is the main application. It owns the camera, the detector and the
// retargeting worker.
type App struct {
	config   Config
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector
	engine   *retarget.Engine
	worker   *Worker

	publishers []Publisher
	recorder   *Recorder
	root       *skeleton.Node
	rebind     bool
	skeletonID string

	enabled bool
	// bindMu serializes skeleton switches with StartRecording. It is
	// taken before mu.
	bindMu  sync.Mutex
	mu      sync.RWMutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}
	if config.MotionThresh <= 0 {
		config.MotionThresh = DefaultMotionThreshold
	}
	engineCfg := retarget.DefaultConfig()
	if config.Engine != nil {
		engineCfg = *config.Engine
	}
	engine, err := retarget.New(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	a := &App{
		config: config,
		camera: capture.NewCameraWithOptions(capture.Options{DeviceID: config.CameraID, FPS: config.FPS}),
		motion: capture.NewMotionDetector(config.MotionThresh),
		engine: engine,
		worker: NewWorker(engine),
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Info("using MediaPipe holistic detection")
	} else {
		log.Warn("MediaPipe not available, using mock detector", "err", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// SetEnabled enables or disables frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the landmark detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. It takes effect on the next Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// AddPublisher registers p for every processed frame.
func (a *App) AddPublisher(p Publisher) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publishers = append(a.publishers, p)
}

// BindSkeleton switches the retargeting target to root. While the
// pipeline runs the switch happens before the next frame; otherwise at
// Start. It fails with ErrRecordingActive while a take is recorded.
func (a *App) BindSkeleton(ctx context.Context, root *skeleton.Node) error {
	return a.bind(ctx, root, "")
}

func (a *App) bind(ctx context.Context, root *skeleton.Node, id string) error {
	if err := root.Validate(); err != nil {
		return err
	}

	a.bindMu.Lock()
	defer a.bindMu.Unlock()

	a.mu.Lock()
	if a.recorder != nil {
		a.mu.Unlock()
		return ErrRecordingActive
	}
	running := a.cancel != nil
	worker := a.worker
	if !running {
		a.root, a.skeletonID, a.rebind = root, id, true
	}
	a.mu.Unlock()

	if !running {
		return nil
	}
	if err := worker.Rebind(ctx, root); err != nil {
		return err
	}

	a.mu.Lock()
	a.root, a.skeletonID, a.rebind = root, id, false
	a.mu.Unlock()
	log.Info("skeleton bound", "skeleton", id)
	return nil
}

// LoadSkeleton binds a stored skeleton, looked up by ID and then by name.
func (a *App) LoadSkeleton(ctx context.Context, ref string) error {
	if a.config.Store == nil {
		return ErrNoStore
	}
	repo := a.config.Store.Skeletons()
	sk, err := repo.GetByID(ref)
	if errors.Is(err, store.ErrNotFound) {
		sk, err = repo.GetByName(ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSkeletonNotFound, ref)
	}
	if err != nil {
		return err
	}

	root, err := skeleton.ParseHierarchy(sk.Hierarchy)
	if err != nil {
		return fmt.Errorf("skeleton %s: %w", sk.Name, err)
	}
	return a.bind(ctx, root, sk.ID)
}

// Start opens the camera and starts the pipeline. Without a bound
// skeleton the built-in humanoid is used.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	fps := a.config.FPS
	if a.config.IdleFPS > 0 {
		fps = a.config.IdleFPS
	}
	a.camera.SetFPS(fps)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(a.engine)
	a.worker = w

	root := a.root
	if root == nil {
		root = skeleton.Humanoid()
	}
	bind := w.Bind
	if a.rebind {
		bind = w.Rebind
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		w.Run(ctx)
	}()
	if err := bind(ctx, root); err != nil {
		cancel()
		a.wg.Wait()
		a.camera.Close()
		return fmt.Errorf("bind skeleton: %w", err)
	}
	a.rebind = false

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.publishLoop(w.Frames())
	}()
	go func() {
		defer a.wg.Done()
		a.runPipeline(ctx, w, fps)
	}()
	a.cancel = cancel

	log.Info("pipeline started", "fps", fps)
	return nil
}

// Stop halts the pipeline, flushes any recording and releases the camera
// and detector.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()

	if err := a.camera.Close(); err != nil {
		log.Warn("error closing camera", "err", err)
	}
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Warn("error closing detector", "err", err)
		}
	}

	a.mu.RLock()
	rec := a.recorder
	a.mu.RUnlock()
	if rec != nil {
		if err := rec.Flush(); err != nil {
			log.Error("error flushing recording", "take", rec.TakeID(), "err", err)
		}
	}

	log.Info("pipeline stopped")
}

// StartRecording creates a take for the bound skeleton and records every
// published frame into it until StopRecording.
func (a *App) StartRecording(name string) (*store.Take, error) {
	if a.config.Store == nil {
		return nil, ErrNoStore
	}

	a.bindMu.Lock()
	defer a.bindMu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recorder != nil {
		return nil, ErrRecording
	}
	skeletonID := a.skeletonID
	if skeletonID == "" {
		if a.root != nil {
			return nil, ErrUnsavedSkeleton
		}
		id, err := a.humanoidID()
		if err != nil {
			return nil, err
		}
		skeletonID = id
	}
	if name == "" {
		name = time.Now().Format("take 2006-01-02 15:04:05")
	}

	take := &store.Take{SkeletonID: skeletonID, Name: name}
	if err := a.config.Store.Takes().Create(take); err != nil {
		return nil, fmt.Errorf("create take: %w", err)
	}
	a.recorder = NewRecorder(a.config.Store.Takes(), take.ID)
	log.Info("recording started", "take", take.ID, "name", name)
	return take, nil
}

// humanoidID returns the stored ID of the built-in skeleton, storing it
// on first use.
func (a *App) humanoidID() (string, error) {
	repo := a.config.Store.Skeletons()
	sk, err := repo.GetByName(HumanoidSkeletonName)
	if err == nil {
		return sk.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	data, err := json.Marshal(skeleton.Humanoid())
	if err != nil {
		return "", err
	}
	sk = &store.Skeleton{Name: HumanoidSkeletonName, Hierarchy: data}
	if err := repo.Create(sk); err != nil {
		return "", err
	}
	return sk.ID, nil
}

// StopRecording flushes and detaches the recorder and returns the
// finished take.
func (a *App) StopRecording() (*store.Take, error) {
	a.mu.Lock()
	rec := a.recorder
	a.recorder = nil
	a.mu.Unlock()

	if rec == nil {
		return nil, ErrNotRecording
	}
	if err := rec.Flush(); err != nil {
		return nil, err
	}
	take, err := a.config.Store.Takes().GetByID(rec.TakeID())
	if err != nil {
		return nil, err
	}
	log.Info("recording stopped", "take", take.ID, "frames", take.FrameCount)
	return take, nil
}

// Status reports the pipeline state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Status{
		Enabled:    a.enabled,
		Running:    a.cancel != nil,
		SkeletonID: a.skeletonID,
		Stats:      a.worker.Stats(),
	}
	if a.recorder != nil {
		s.TakeID = a.recorder.TakeID()
	}
	if f := a.worker.Latest(); f != nil {
		s.LastSeq = f.Seq
	}
	return s
}

// Latest returns the most recent frame, or nil before the first one.
func (a *App) Latest() *retarget.Frame {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.worker.Latest()
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
