package skeleton

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/ayusman/mimic/internal/geom"
)

// synthetic bones always get an entry, even when the bound tree lacks them.
var synthetic = [...]BoneID{C(Hips), C(Spine), C(Neck), C(Head)}

// Arena stores one record per bone of a bound hierarchy, indexed by a
// stable integer id. Rotations are double buffered: Set writes the pending
// frame and Commit publishes it, so a frame abandoned halfway leaves the
// committed rotations untouched.
//
// An Arena is not safe for concurrent use.
type Arena struct {
	names     []string
	index     map[string]int
	byBone    map[BoneID]int
	parent    []int
	synthetic []bool
	bone      []BoneID
	known     []bool
	rest      []geom.Basis
	conv      []Convention

	cur, next []quat.Number
}

// NewArena binds root. Ids are assigned depth first; the synthetic center
// bones missing from the tree are appended as roots.
func NewArena(root *Node) (*Arena, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}
	a := &Arena{index: make(map[string]int), byBone: make(map[BoneID]int)}
	root.Walk(func(node, parent *Node) {
		p := -1
		if parent != nil {
			p = a.index[parent.Name]
		}
		a.add(node.Name, p, false)
	})
	for _, id := range synthetic {
		if _, ok := a.index[id.Name()]; !ok {
			a.add(id.Name(), -1, true)
		}
	}

	n := len(a.names)
	a.cur = make([]quat.Number, n)
	a.next = make([]quat.Number, n)
	for i := range a.cur {
		a.cur[i] = geom.Identity()
		a.next[i] = geom.Identity()
	}
	return a, nil
}

func (a *Arena) add(name string, parent int, synth bool) {
	id := len(a.names)
	a.index[name] = id
	a.names = append(a.names, name)
	a.parent = append(a.parent, parent)
	a.synthetic = append(a.synthetic, synth)

	bone, err := ParseBoneName(name)
	known := err == nil
	a.bone = append(a.bone, bone)
	a.known = append(a.known, known)
	if known {
		a.byBone[bone] = id
		a.rest = append(a.rest, RestBasis(bone))
		a.conv = append(a.conv, ConventionOf(bone))
	} else {
		a.rest = append(a.rest, geom.Canonical)
		a.conv = append(a.conv, MirrorYZ)
	}
}

// Len returns the number of bones.
func (a *Arena) Len() int { return len(a.names) }

// Name returns the name of bone id.
func (a *Arena) Name(id int) string { return a.names[id] }

// ID returns the id of the bone called name.
func (a *Arena) ID(name string) (int, bool) {
	id, ok := a.index[name]
	return id, ok
}

// IDOf returns the id of a humanoid bone.
func (a *Arena) IDOf(b BoneID) (int, bool) {
	id, ok := a.byBone[b]
	return id, ok
}

// Bone returns the humanoid bone of id, if its name is one.
func (a *Arena) Bone(id int) (BoneID, bool) { return a.bone[id], a.known[id] }

// Parent returns the parent id, or -1 for a root.
func (a *Arena) Parent(id int) int { return a.parent[id] }

// Synthetic reports whether id was added because the tree lacked it.
func (a *Arena) Synthetic(id int) bool { return a.synthetic[id] }

// Rest returns the rest frame of id.
func (a *Arena) Rest(id int) geom.Basis { return a.rest[id] }

// Convention returns the stored-form convention of id.
func (a *Arena) Convention(id int) Convention { return a.conv[id] }

// Ancestors appends the ancestors of id to buf, root first, and returns
// the extended slice.
func (a *Arena) Ancestors(id int, buf []int) []int {
	start := len(buf)
	for p := a.parent[id]; p >= 0; p = a.parent[p] {
		buf = append(buf, p)
	}
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// Rotation returns the committed rotation of id in stored form.
func (a *Arena) Rotation(id int) Rotation {
	return Rotation{Q: a.cur[id], Base: a.rest[id]}
}

// Begin starts a new pending frame from the committed rotations.
func (a *Arena) Begin() {
	copy(a.next, a.cur)
}

// Pending returns the pending rotation of id in stored form.
func (a *Arena) Pending(id int) quat.Number { return a.next[id] }

// Set writes the pending rotation of id in stored form.
func (a *Arena) Set(id int, q quat.Number) error {
	if !geom.FiniteQuat(q) {
		return fmt.Errorf("%w: non-finite rotation for %s", geom.ErrDegenerate, a.names[id])
	}
	a.next[id] = q
	return nil
}

// Commit publishes the pending frame.
func (a *Arena) Commit() {
	a.cur, a.next = a.next, a.cur
}

// Snapshot copies the committed rotations into a new map.
func (a *Arena) Snapshot() RotationMap {
	m := make(RotationMap, len(a.names))
	for i, name := range a.names {
		m[name] = QuatOf(a.cur[i])
	}
	return m
}
