package skeleton

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidHierarchy is returned for a bone tree with empty or repeated
// names.
var ErrInvalidHierarchy = errors.New("invalid bone hierarchy")

// Node is one joint of a skeleton's transform tree.
type Node struct {
	Name     string  `json:"name"`
	Children []*Node `json:"children,omitempty"`
}

// N builds a node.
func N(name string, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// Walk visits the tree depth first, parents before children. fn receives
// the parent (nil for the root). Nil children are skipped.
func (n *Node) Walk(fn func(node, parent *Node)) {
	var walk func(node, parent *Node)
	walk = func(node, parent *Node) {
		if node == nil {
			return
		}
		fn(node, parent)
		for _, c := range node.Children {
			walk(c, node)
		}
	}
	walk(n, nil)
}

// Find returns the first node named name, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(node, _ *Node) {
		if found == nil && node.Name == name {
			found = node
		}
	})
	return found
}

// Validate checks that every name is non-empty and unique.
func (n *Node) Validate() error {
	if n == nil {
		return fmt.Errorf("%w: empty tree", ErrInvalidHierarchy)
	}
	seen := make(map[string]bool)
	var err error
	n.Walk(func(node, _ *Node) {
		for _, c := range node.Children {
			if c == nil && err == nil {
				err = fmt.Errorf("%w: nil child of %q", ErrInvalidHierarchy, node.Name)
			}
		}
		switch {
		case err != nil:
		case node.Name == "":
			err = fmt.Errorf("%w: unnamed node", ErrInvalidHierarchy)
		case seen[node.Name]:
			err = fmt.Errorf("%w: duplicate name %q", ErrInvalidHierarchy, node.Name)
		default:
			seen[node.Name] = true
		}
	})
	return err
}

// ParseHierarchy decodes and validates a JSON bone tree.
func ParseHierarchy(data []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode hierarchy: %w", err)
	}
	if err := root.Validate(); err != nil {
		return nil, err
	}
	return &root, nil
}

func sidedChain(s Side) (arm, leg *Node) {
	name := func(k Kind) string { return B(s, k).Name() }
	finger := func(p, i, d Kind) *Node {
		return N(name(p), N(name(i), N(name(d))))
	}
	arm = N(name(UpperArm), N(name(LowerArm), N(name(Hand),
		finger(ThumbProximal, ThumbIntermediate, ThumbDistal),
		finger(IndexProximal, IndexIntermediate, IndexDistal),
		finger(MiddleProximal, MiddleIntermediate, MiddleDistal),
		finger(RingProximal, RingIntermediate, RingDistal),
		finger(LittleProximal, LittleIntermediate, LittleDistal),
	)))
	leg = N(name(UpperLeg), N(name(LowerLeg), N(name(Foot))))
	return arm, leg
}

// Humanoid returns the standard humanoid hierarchy with every bone the
// engine drives.
func Humanoid() *Node {
	leftArm, leftLeg := sidedChain(Left)
	rightArm, rightLeg := sidedChain(Right)
	return N("hips",
		N("spine",
			N("neck",
				N("head", N("leftEye"), N("rightEye")),
			),
			leftArm,
			rightArm,
		),
		leftLeg,
		rightLeg,
	)
}
