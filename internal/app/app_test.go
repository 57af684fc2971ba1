package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/retarget"
	"github.com/ayusman/mimic/internal/skeleton"
	"github.com/ayusman/mimic/internal/store"
)

type collector struct {
	mu     sync.Mutex
	frames []*retarget.Frame
}

func (c *collector) Publish(f *retarget.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *collector) Seqs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seqs := make([]uint64, len(c.frames))
	for i, f := range c.frames {
		seqs[i] = f.Seq
	}
	return seqs
}

func newTestApp(t *testing.T, s *store.Store) (*App, *capture.MockCamera, *collector) {
	t.Helper()
	a, err := New(Config{Store: s, FPS: 50})
	require.NoError(t, err)

	cam := capture.NewMockCamera(nil, false)
	a.SetCamera(cam)
	d := detector.NewMockDetector()
	d.SetResults(detector.TPoseResults())
	a.SetDetector(d)

	c := &collector{}
	a.AddPublisher(c)
	t.Cleanup(a.Stop)
	return a, cam, c
}

func TestApp_PipelinePublishesFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, _, c := newTestApp(t, nil)
	a.SetEnabled(true)
	require.NoError(t, a.Start())
	require.NoError(t, a.Start(), "starting twice is a no-op")

	require.Eventually(t, func() bool { return c.Len() >= 3 }, 5*time.Second, 10*time.Millisecond)

	seqs := c.Seqs()
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1], "frames arrive in order")
	}

	st := a.Status()
	assert.True(t, st.Running)
	assert.True(t, st.Enabled)
	assert.NotZero(t, st.LastSeq)
	assert.NotNil(t, a.Latest())

	a.Stop()
	assert.False(t, a.Status().Running)
	a.Stop()
}

func TestApp_DisabledReadsNothing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, cam, c := newTestApp(t, nil)
	require.NoError(t, a.Start())

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, cam.Reads())
	assert.Zero(t, c.Len())
}

func TestApp_Recording(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s := newTestStore(t)
	a, _, c := newTestApp(t, s)

	_, err := a.StopRecording()
	require.ErrorIs(t, err, ErrNotRecording)

	take, err := a.StartRecording("")
	require.NoError(t, err)
	assert.NotEmpty(t, take.Name)
	_, err = a.StartRecording("again")
	require.ErrorIs(t, err, ErrRecording)

	sk, err := s.Skeletons().GetByName(HumanoidSkeletonName)
	require.NoError(t, err, "the built-in skeleton is stored for the take")
	assert.Equal(t, sk.ID, take.SkeletonID)

	a.SetEnabled(true)
	require.NoError(t, a.Start())
	assert.Equal(t, take.ID, a.Status().TakeID)
	require.Eventually(t, func() bool { return c.Len() >= 5 }, 5*time.Second, 10*time.Millisecond)

	done, err := a.StopRecording()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, done.FrameCount, 5)

	frames, err := s.Takes().Frames(take.ID)
	require.NoError(t, err)
	assert.Len(t, frames, done.FrameCount)

	var f retarget.Frame
	require.NoError(t, json.Unmarshal(frames[0].Data, &f))
	assert.Contains(t, f.Rotations, "hips")

	// A second take reuses the stored humanoid.
	again, err := a.StartRecording("second")
	require.NoError(t, err)
	assert.Equal(t, sk.ID, again.SkeletonID)
}

func TestApp_Skeletons(t *testing.T) {
	ctx := context.Background()

	t.Run("no store", func(t *testing.T) {
		a, err := New(Config{})
		require.NoError(t, err)
		require.ErrorIs(t, a.LoadSkeleton(ctx, "vrm"), ErrNoStore)
		_, err = a.StartRecording("x")
		require.ErrorIs(t, err, ErrNoStore)
	})

	t.Run("load by name or id", func(t *testing.T) {
		s := newTestStore(t)
		a, err := New(Config{Store: s})
		require.NoError(t, err)

		data, err := json.Marshal(skeleton.N("root", skeleton.N("hips")))
		require.NoError(t, err)
		sk := &store.Skeleton{Name: "vrm", Hierarchy: data}
		require.NoError(t, s.Skeletons().Create(sk))

		require.NoError(t, a.LoadSkeleton(ctx, "vrm"))
		assert.Equal(t, sk.ID, a.Status().SkeletonID)
		require.NoError(t, a.LoadSkeleton(ctx, sk.ID))
		require.ErrorIs(t, a.LoadSkeleton(ctx, "mixamo"), ErrSkeletonNotFound)

		take, err := a.StartRecording("vrm take")
		require.NoError(t, err)
		assert.Equal(t, sk.ID, take.SkeletonID)
	})

	t.Run("unsaved skeleton cannot record", func(t *testing.T) {
		s := newTestStore(t)
		a, err := New(Config{Store: s})
		require.NoError(t, err)

		require.NoError(t, a.BindSkeleton(ctx, skeleton.N("root", skeleton.N("hips"))))
		_, err = a.StartRecording("x")
		require.ErrorIs(t, err, ErrUnsavedSkeleton)

		require.ErrorIs(t, a.BindSkeleton(ctx, skeleton.N("a", skeleton.N("a"))), skeleton.ErrInvalidHierarchy)
	})
}

func TestApp_SkeletonLockedWhileRecording(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a, err := New(Config{Store: s})
	require.NoError(t, err)

	for _, name := range []string{"vrm", "mixamo"} {
		data, err := json.Marshal(skeleton.N("root", skeleton.N("hips")))
		require.NoError(t, err)
		require.NoError(t, s.Skeletons().Create(&store.Skeleton{Name: name, Hierarchy: data}))
	}
	require.NoError(t, a.LoadSkeleton(ctx, "vrm"))
	vrm := a.Status().SkeletonID

	take, err := a.StartRecording("vrm take")
	require.NoError(t, err)
	assert.Equal(t, vrm, take.SkeletonID)

	require.ErrorIs(t, a.LoadSkeleton(ctx, "mixamo"), ErrRecordingActive)
	require.ErrorIs(t, a.BindSkeleton(ctx, skeleton.Humanoid()), ErrRecordingActive)
	assert.Equal(t, vrm, a.Status().SkeletonID, "the take's skeleton stays bound")

	_, err = a.StopRecording()
	require.NoError(t, err)
	require.NoError(t, a.LoadSkeleton(ctx, "mixamo"))
	assert.NotEqual(t, vrm, a.Status().SkeletonID)
}

func TestApp_RebindWhileRunning(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, _, c := newTestApp(t, nil)
	a.SetEnabled(true)
	require.NoError(t, a.Start())
	require.Eventually(t, func() bool { return c.Len() >= 1 }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.BindSkeleton(ctx, skeleton.N("root", skeleton.N("hips"))))

	require.Eventually(t, func() bool {
		f := a.Latest()
		if f == nil {
			return false
		}
		_, hasArm := f.Rotations["leftUpperArm"]
		return !hasArm
	}, 5*time.Second, 10*time.Millisecond)
}
