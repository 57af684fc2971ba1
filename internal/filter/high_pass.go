package filter

import "github.com/golang/geo/r3"

// HighPass holds a value until a new sample moves further than threshold.
type HighPass struct {
	threshold float64
	value     r3.Vector
	seeded    bool
}

// NewHighPass creates an unseeded HighPass.
func NewHighPass(threshold float64) *HighPass {
	return &HighPass{threshold: threshold}
}

// Update returns the held value, replacing it with v first when v is far
// enough away. The first call always accepts v.
func (h *HighPass) Update(v r3.Vector) r3.Vector {
	h.value = h.Peek(v)
	h.seeded = true
	return h.value
}

// Peek returns what Update(v) would return without changing the held
// value.
func (h *HighPass) Peek(v r3.Vector) r3.Vector {
	if !h.seeded || h.value.Sub(v).Norm() > h.threshold {
		return v
	}
	return h.value
}

// Value returns the held value.
func (h *HighPass) Value() r3.Vector {
	return h.value
}

// Reset forces the held value to v.
func (h *HighPass) Reset(v r3.Vector) {
	h.value = v
	h.seeded = true
}
