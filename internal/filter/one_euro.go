package filter

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// OneEuro is a one-euro filter over 3D vectors. The cutoff adapts to the
// speed of the signal: slow motion is smoothed hard, fast motion passes.
type OneEuro struct {
	p OneEuroParams

	seeded bool
	tPrev  float64
	xPrev  r3.Vector
	dxPrev r3.Vector
}

// NewOneEuro validates p and returns an unseeded filter.
func NewOneEuro(p OneEuroParams) (*OneEuro, error) {
	if p.MinCutoff <= 0 || p.DCutoff <= 0 || p.Beta < 0 {
		return nil, fmt.Errorf("%w: one-euro %+v", ErrInvalidParams, p)
	}
	return &OneEuro{p: p}, nil
}

func smoothingFactor(dt, cutoff float64) float64 {
	r := 2 * math.Pi * cutoff * dt
	return r / (r + 1)
}

func exponential(a float64, x, prev r3.Vector) r3.Vector {
	return x.Mul(a).Add(prev.Mul(1 - a))
}

// Next filters x observed at time t. The first sample seeds the state and
// is returned unchanged. Timestamps must increase strictly; a sample that
// does not advance time returns the previous estimate.
func (f *OneEuro) Next(t float64, x r3.Vector) r3.Vector {
	if !f.seeded {
		f.seeded = true
		f.tPrev, f.xPrev, f.dxPrev = t, x, r3.Vector{}
		return x
	}
	dt := t - f.tPrev
	if dt <= 0 {
		return f.xPrev
	}

	dx := x.Sub(f.xPrev).Mul(1 / dt)
	dxHat := exponential(smoothingFactor(dt, f.p.DCutoff), dx, f.dxPrev)

	cutoff := f.p.MinCutoff + f.p.Beta*dxHat.Norm()
	xHat := exponential(smoothingFactor(dt, cutoff), x, f.xPrev)

	f.tPrev, f.xPrev, f.dxPrev = t, xHat, dxHat
	return xHat
}
