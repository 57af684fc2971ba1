// Package skeleton describes the humanoid bones the engine drives: the
// bone enum and name table, the bound hierarchy and the rotation storage.
package skeleton

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBone is returned for a bone name outside the humanoid table.
var ErrUnknownBone = errors.New("unknown bone")

// Side is the body side of a bone, from the avatar's point of view.
type Side uint8

const (
	Center Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Center:
		return "center"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// Kind is a bone without its side.
type Kind uint8

const (
	Hips Kind = iota
	Spine
	Neck
	Head
	Eye
	UpperArm
	LowerArm
	Hand
	UpperLeg
	LowerLeg
	Foot
	ThumbProximal
	ThumbIntermediate
	ThumbDistal
	IndexProximal
	IndexIntermediate
	IndexDistal
	MiddleProximal
	MiddleIntermediate
	MiddleDistal
	RingProximal
	RingIntermediate
	RingDistal
	LittleProximal
	LittleIntermediate
	LittleDistal
	numKinds
)

var kindNames = [numKinds]string{
	"hips", "spine", "neck", "head", "eye",
	"upperArm", "lowerArm", "hand", "upperLeg", "lowerLeg", "foot",
	"thumbProximal", "thumbIntermediate", "thumbDistal",
	"indexProximal", "indexIntermediate", "indexDistal",
	"middleProximal", "middleIntermediate", "middleDistal",
	"ringProximal", "ringIntermediate", "ringDistal",
	"littleProximal", "littleIntermediate", "littleDistal",
}

func (k Kind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Centered reports whether k only exists on the center line.
func (k Kind) Centered() bool {
	return k <= Head
}

// Finger reports whether k is a finger segment.
func (k Kind) Finger() bool {
	return k >= ThumbProximal && k < numKinds
}

// Thumb reports whether k is a thumb segment.
func (k Kind) Thumb() bool {
	return k >= ThumbProximal && k <= ThumbDistal
}

// Joint returns 0, 1 or 2 for the proximal, intermediate and distal
// segment of a finger.
func (k Kind) Joint() int {
	if !k.Finger() {
		return -1
	}
	return int(k-ThumbProximal) % 3
}

// BoneID identifies a humanoid bone.
type BoneID struct {
	Side Side
	Kind Kind
}

// B is shorthand for a sided BoneID.
func B(s Side, k Kind) BoneID { return BoneID{Side: s, Kind: k} }

// C is shorthand for a center BoneID.
func C(k Kind) BoneID { return BoneID{Side: Center, Kind: k} }

// Valid reports whether id names a bone in the humanoid table.
func (id BoneID) Valid() bool {
	if id.Kind >= numKinds || id.Side > Right {
		return false
	}
	return id.Kind.Centered() == (id.Side == Center)
}

// Name returns the humanoid bone name, e.g. "hips" or "leftUpperArm".
func (id BoneID) Name() string {
	if !id.Valid() {
		return fmt.Sprintf("invalid(%v,%v)", id.Side, id.Kind)
	}
	k := id.Kind.String()
	if id.Side == Center {
		return k
	}
	return id.Side.String() + strings.ToUpper(k[:1]) + k[1:]
}

func (id BoneID) String() string { return id.Name() }

var byName = func() map[string]BoneID {
	m := make(map[string]BoneID)
	for _, id := range All() {
		m[id.Name()] = id
	}
	return m
}()

// ParseBoneName maps a humanoid bone name to its BoneID.
func ParseBoneName(name string) (BoneID, error) {
	id, ok := byName[name]
	if !ok {
		return BoneID{}, fmt.Errorf("%w: %q", ErrUnknownBone, name)
	}
	return id, nil
}

// All lists every humanoid bone: the center bones, then each sided kind
// left before right.
func All() []BoneID {
	out := make([]BoneID, 0, 4+2*(int(numKinds)-4))
	for k := Kind(0); k < numKinds; k++ {
		if k.Centered() {
			out = append(out, C(k))
			continue
		}
		out = append(out, B(Left, k), B(Right, k))
	}
	return out
}

// FingerBone maps a hand landmark index to the finger segment that starts
// at it. Fingertips and the wrist have no segment.
func FingerBone(side Side, handIndex int) (BoneID, bool) {
	if handIndex < 1 || handIndex > 19 {
		return BoneID{}, false
	}
	finger, joint := (handIndex-1)/4, (handIndex-1)%4
	if joint == 3 {
		return BoneID{}, false
	}
	return B(side, ThumbProximal+Kind(finger*3+joint)), true
}
