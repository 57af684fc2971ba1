package filter

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian smooths the last N samples with a centered Gaussian kernel.
type Gaussian struct {
	kernel []float64
	values []r3.Vector
}

// NewGaussian builds a window of size samples. sigma is in samples; zero
// picks size/4.
func NewGaussian(size int, sigma float64) (*Gaussian, error) {
	if size < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrWindowTooSmall, size)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("%w: gaussian sigma %g", ErrInvalidParams, sigma)
	}
	if sigma == 0 {
		sigma = float64(size) / 4
	}
	dist := distuv.Normal{Mu: 0, Sigma: sigma}
	center := float64(size-1) / 2
	kernel := make([]float64, size)
	for i := range kernel {
		kernel[i] = dist.Prob(float64(i) - center)
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return &Gaussian{
		kernel: kernel,
		values: make([]r3.Vector, 0, size),
	}, nil
}

// Push appends v and evicts the oldest sample beyond capacity.
func (g *Gaussian) Push(v r3.Vector) {
	if len(g.values) == cap(g.values) {
		copy(g.values, g.values[1:])
		g.values = g.values[:len(g.values)-1]
	}
	g.values = append(g.values, v)
}

// Full reports whether the window holds N samples.
func (g *Gaussian) Full() bool {
	return len(g.values) == len(g.kernel)
}

// Len returns the number of buffered samples.
func (g *Gaussian) Len() int {
	return len(g.values)
}

// Reset drops every buffered sample.
func (g *Gaussian) Reset() {
	g.values = g.values[:0]
}

// Apply returns the kernel-weighted sum of the window, rescaled to the
// length of the newest sample. It returns the zero vector until the window
// is full.
func (g *Gaussian) Apply() r3.Vector {
	if !g.Full() {
		return r3.Vector{}
	}
	var sum r3.Vector
	for i, v := range g.values {
		sum = sum.Add(v.Mul(g.kernel[i]))
	}
	n := sum.Norm()
	if n == 0 {
		return sum
	}
	return sum.Mul(g.values[len(g.values)-1].Norm() / n)
}
