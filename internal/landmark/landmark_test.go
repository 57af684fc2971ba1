package landmark

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/filter"
	"github.com/ayusman/mimic/internal/geom"
)

func vis(v float64) *float64 { return &v }

func chains() map[string]filter.Params {
	oneEuro := filter.DefaultParams()
	kalman := filter.DefaultParams()
	kalman.Kind = filter.KindKalman
	windowed := filter.DefaultParams()
	windowed.GaussianWindow = 4
	return map[string]filter.Params{
		"one euro": oneEuro,
		"kalman":   kalman,
		"windowed": windowed,
	}
}

func TestFilteredConverges(t *testing.T) {
	target := geom.V(0.3, -0.2, 0.5)
	for name, p := range chains() {
		t.Run(name, func(t *testing.T) {
			f, err := New(p, DefaultVisibilityThreshold)
			require.NoError(t, err)

			f.UpdatePosition(geom.V(1, 1, 1), vis(0.9))
			prev := f.Pos().Sub(target).Norm()
			for i := 0; i < 300; i++ {
				f.UpdatePosition(target, vis(0.9))
				d := f.Pos().Sub(target).Norm()
				if p.GaussianWindow == 0 {
					assert.LessOrEqual(t, d, prev+1e-9, "step %d moved away", i)
				}
				prev = d
			}
			assert.InDelta(t, 0, prev, 1e-3)
			assert.Equal(t, 301.0, f.T())
		})
	}
}

func TestFilteredFreezesOnLowVisibility(t *testing.T) {
	for name, p := range chains() {
		t.Run(name, func(t *testing.T) {
			f, err := New(p, DefaultVisibilityThreshold)
			require.NoError(t, err)

			require.True(t, f.UpdatePosition(geom.V(0.1, 0.2, 0.3), vis(0.9)))
			want := f.Pos()
			for i := 0; i < 50; i++ {
				assert.False(t, f.UpdatePosition(geom.V(5, 5, 5), vis(0.2)))
			}
			assert.Equal(t, want, f.Pos())
			v, ok := f.Visibility()
			assert.True(t, ok)
			assert.Equal(t, 0.9, v)
			assert.False(t, f.Fresh())
			assert.Equal(t, 51.0, f.T(), "clock advances while frozen")

			// The filter did not see the rejected samples.
			require.True(t, f.UpdatePosition(geom.V(0.1, 0.2, 0.3), vis(0.9)))
			assert.InDelta(t, 0, f.Pos().Sub(want).Norm(), 1e-9)
		})
	}

	t.Run("threshold is exclusive", func(t *testing.T) {
		f, err := New(filter.DefaultParams(), 0.65)
		require.NoError(t, err)
		assert.False(t, f.UpdatePosition(geom.V(1, 0, 0), vis(0.65)))
	})

	t.Run("no visibility always updates", func(t *testing.T) {
		f, err := New(filter.DefaultParams(), 0.65)
		require.NoError(t, err)
		assert.True(t, f.UpdatePosition(geom.V(1, 0, 0), nil))
		_, ok := f.Visibility()
		assert.False(t, ok)
	})
}

func TestFilteredGatesNonFinite(t *testing.T) {
	for name, p := range chains() {
		t.Run(name, func(t *testing.T) {
			f, err := New(p, DefaultVisibilityThreshold)
			require.NoError(t, err)

			require.True(t, f.UpdatePosition(geom.V(0.1, 0.2, 0.3), nil))
			want := f.Pos()

			assert.False(t, f.UpdatePosition(geom.V(math.NaN(), 0, 0), nil))
			assert.False(t, f.UpdatePosition(geom.V(0, math.Inf(1), 0), vis(0.9)))
			assert.False(t, f.UpdatePosition(geom.V(0.1, 0.2, 0.3), vis(math.NaN())))
			assert.False(t, f.Fresh())
			assert.Equal(t, want, f.Pos())

			require.True(t, f.UpdatePosition(geom.V(0.1, 0.2, 0.3), nil))
			assert.True(t, geom.Finite(f.Pos()), "pos = %v", f.Pos())
			assert.InDelta(t, 0, f.Pos().Sub(want).Norm(), 1e-9)
		})
	}
}

func TestNewSet(t *testing.T) {
	set, err := NewSet(detector.NumHandLandmarks, filter.DefaultParams(), DefaultVisibilityThreshold)
	require.NoError(t, err)
	require.Len(t, set, detector.NumHandLandmarks)

	set[0].UpdatePosition(geom.V(1, 0, 0), nil)
	set[1].UpdatePosition(geom.V(2, 0, 0), vis(0.1))
	assert.Equal(t, geom.V(1, 0, 0), set[0].Pos())
	assert.Equal(t, geom.Vec{}, set[1].Pos(), "filters are independent")
	assert.True(t, AllFresh(set, 0))
	assert.False(t, AllFresh(set, 0, 1))

	bad := filter.DefaultParams()
	bad.Kind = filter.Kind(9)
	_, err = NewSet(3, bad, DefaultVisibilityThreshold)
	require.ErrorIs(t, err, filter.ErrUnknownKind)
}

func TestRegions(t *testing.T) {
	face, err := NewSet(detector.NumFaceLandmarks, filter.DefaultParams(), DefaultVisibilityThreshold)
	require.NoError(t, err)
	for i, lm := range detector.TPoseResults().Face {
		face[i].UpdatePosition(geom.V(lm.X, lm.Y, lm.Z), nil)
	}

	r := NewRegions()
	r.Extract(face)

	for g := LeftEyebrow; g < numRegions; g++ {
		assert.Len(t, r.Points(g), len(RegionIndices(g)), g.String())
		seen := map[int]bool{}
		for _, i := range RegionIndices(g) {
			assert.False(t, seen[i], "%v repeats %d", g, i)
			assert.Less(t, i, detector.NumFaceLandmarks)
			seen[i] = true
		}
	}

	c := r.Center(LeftIris)
	assert.InDelta(t, 0.525, c.X, 1e-9)
	assert.InDelta(t, 0.28, c.Y, 1e-9)
	assert.Equal(t, "Region(12)", Region(12).String())
}

func TestFaceKeyPoints(t *testing.T) {
	face, err := NewSet(detector.NumFaceLandmarks, filter.DefaultParams(), DefaultVisibilityThreshold)
	require.NoError(t, err)
	kp, err := NewFaceKeyPoints(face)
	require.NoError(t, err)

	face[263].UpdatePosition(geom.V(0.54, 0.28, 0), nil)
	assert.Equal(t, geom.V(0.54, 0.28, 0), kp.LeftEyeOuter.Pos(), "key points follow the set")

	_, err = NewFaceKeyPoints(face[:100])
	require.Error(t, err)
}
