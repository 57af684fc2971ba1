package skeleton

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mimic/internal/geom"
)

func TestBoneNames(t *testing.T) {
	tests := []struct {
		id   BoneID
		want string
	}{
		{C(Hips), "hips"},
		{C(Head), "head"},
		{B(Left, UpperArm), "leftUpperArm"},
		{B(Right, LowerLeg), "rightLowerLeg"},
		{B(Left, ThumbProximal), "leftThumbProximal"},
		{B(Right, LittleDistal), "rightLittleDistal"},
		{B(Left, Eye), "leftEye"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.Name())
			got, err := ParseBoneName(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.id, got)
		})
	}

	_, err := ParseBoneName("leftTail")
	require.ErrorIs(t, err, ErrUnknownBone)

	assert.False(t, B(Left, Hips).Valid())
	assert.False(t, C(UpperArm).Valid())
	assert.False(t, BoneID{Side: Side(7), Kind: Foot}.Valid())
}

func TestAllBonesHaveUniqueNames(t *testing.T) {
	all := All()
	// 4 center kinds, 22 sided kinds on two sides.
	assert.Len(t, all, 4+2*22)
	seen := map[string]bool{}
	for _, id := range all {
		require.True(t, id.Valid(), id.Name())
		assert.False(t, seen[id.Name()], id.Name())
		seen[id.Name()] = true
		require.NoError(t, RestBasis(id).Verify(), id.Name())
	}
}

func TestFingerBone(t *testing.T) {
	tests := []struct {
		idx  int
		want Kind
		ok   bool
	}{
		{0, 0, false},
		{1, ThumbProximal, true},
		{3, ThumbDistal, true},
		{4, 0, false},
		{5, IndexProximal, true},
		{10, MiddleIntermediate, true},
		{15, RingDistal, true},
		{17, LittleProximal, true},
		{19, LittleDistal, true},
		{20, 0, false},
	}
	for _, tt := range tests {
		got, ok := FingerBone(Right, tt.idx)
		assert.Equal(t, tt.ok, ok, "index %d", tt.idx)
		if ok {
			assert.Equal(t, B(Right, tt.want), got, "index %d", tt.idx)
			assert.Equal(t, (tt.idx-1)%4, got.Kind.Joint())
		}
	}
	assert.True(t, ThumbIntermediate.Thumb())
	assert.False(t, IndexProximal.Thumb())
	assert.Equal(t, -1, Hand.Joint())
}

func TestHierarchy(t *testing.T) {
	root := Humanoid()
	require.NoError(t, root.Validate())
	assert.NotNil(t, root.Find("rightLittleDistal"))
	assert.Nil(t, root.Find("tail"))

	t.Run("parse", func(t *testing.T) {
		n, err := ParseHierarchy([]byte(`{"name":"hips","children":[{"name":"spine","children":[{"name":"head"}]}]}`))
		require.NoError(t, err)
		assert.Equal(t, "head", n.Children[0].Children[0].Name)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := ParseHierarchy([]byte(`{"name":"hips","children":[{"name":"spine"},{"name":"spine"}]}`))
		require.ErrorIs(t, err, ErrInvalidHierarchy)
	})

	t.Run("unnamed", func(t *testing.T) {
		_, err := ParseHierarchy([]byte(`{"name":"hips","children":[{}]}`))
		require.ErrorIs(t, err, ErrInvalidHierarchy)
	})

	t.Run("nil child", func(t *testing.T) {
		require.ErrorIs(t, N("hips", nil).Validate(), ErrInvalidHierarchy)
	})
}

func TestArena(t *testing.T) {
	root := N("root", N("hips", N("spine", N("head"))), N("prop"))
	a, err := NewArena(root)
	require.NoError(t, err)

	// root, hips, spine, head, prop, then synthetic neck.
	require.Equal(t, 6, a.Len())
	neck, ok := a.IDOf(C(Neck))
	require.True(t, ok)
	assert.True(t, a.Synthetic(neck))
	assert.Equal(t, -1, a.Parent(neck))

	head, _ := a.IDOf(C(Head))
	assert.False(t, a.Synthetic(head))
	names := []string{}
	for _, id := range a.Ancestors(head, nil) {
		names = append(names, a.Name(id))
	}
	assert.Equal(t, []string{"root", "hips", "spine"}, names)

	t.Run("ancestors reuse buffer", func(t *testing.T) {
		buf := make([]int, 0, 8)
		got := a.Ancestors(head, buf)
		assert.Len(t, got, 3)
		got = a.Ancestors(head, got[:0])
		assert.Len(t, got, 3)
	})

	t.Run("unknown names get canonical rest", func(t *testing.T) {
		prop, ok := a.ID("prop")
		require.True(t, ok)
		_, known := a.Bone(prop)
		assert.False(t, known)
		assert.Equal(t, geom.Canonical, a.Rest(prop))
	})

	t.Run("double buffer", func(t *testing.T) {
		q := geom.QuatFromAxisAngle(geom.V(0, 1, 0), 0.5)
		a.Begin()
		require.NoError(t, a.Set(head, q))
		assert.Equal(t, geom.Identity(), a.Rotation(head).Q, "pending is not visible")

		a.Commit()
		assert.Equal(t, q, a.Rotation(head).Q)
		assert.Equal(t, QuatOf(q), a.Snapshot()["head"])

		a.Begin()
		err := a.Set(head, geom.Q(math.NaN(), 0, 0, 1))
		require.ErrorIs(t, err, geom.ErrDegenerate)
		assert.Equal(t, q, a.Pending(head), "bad rotation not stored")
	})

	t.Run("snapshot covers every bone", func(t *testing.T) {
		m := a.Snapshot()
		assert.Len(t, m, a.Len())
		for _, name := range []string{"hips", "spine", "neck", "head", "root", "prop"} {
			assert.Contains(t, m, name)
		}
	})

	_, err = NewArena(N(""))
	require.ErrorIs(t, err, ErrInvalidHierarchy)
}

func TestConvention(t *testing.T) {
	assert.Equal(t, MirrorY, ConventionOf(C(Hips)))
	assert.Equal(t, MirrorY, ConventionOf(C(Spine)))
	assert.Equal(t, MirrorYZ, ConventionOf(C(Head)))
	assert.Equal(t, MirrorYZ, ConventionOf(B(Left, UpperArm)))

	q := geom.FromEulerDegrees(geom.V(10, 20, 30))
	for _, c := range []Convention{MirrorY, MirrorYZ} {
		stored, err := c.Apply(q)
		require.NoError(t, err)
		back, err := c.Apply(stored)
		require.NoError(t, err)
		assert.True(t, geom.EqualByRotation(q, back, 1e-9), c.String())
	}
}

func TestQuatWire(t *testing.T) {
	q := geom.Q(0.1, 0.2, 0.3, 0.9)
	w := QuatOf(q)
	assert.Equal(t, Quat{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9}, w)
	assert.Equal(t, q, w.Number())
}
