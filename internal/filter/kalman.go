package filter

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Kalman runs a constant-position Kalman filter on each axis. The three
// axes are independent, so every covariance stays diagonal.
type Kalman struct {
	x    *mat.VecDense
	p    *mat.Dense
	q    *mat.DiagDense
	r    *mat.DiagDense
	eye  *mat.DiagDense
	seed bool
}

// NewKalman validates p and returns an unseeded filter.
func NewKalman(p KalmanParams) (*Kalman, error) {
	if p.ProcessNoise <= 0 || p.MeasurementNoise <= 0 {
		return nil, fmt.Errorf("%w: kalman %+v", ErrInvalidParams, p)
	}
	diag := func(v float64) *mat.DiagDense {
		return mat.NewDiagDense(3, []float64{v, v, v})
	}
	return &Kalman{
		x:   mat.NewVecDense(3, nil),
		p:   mat.NewDense(3, 3, nil),
		q:   diag(p.ProcessNoise),
		r:   diag(p.MeasurementNoise),
		eye: diag(1),
	}, nil
}

// Next folds in the measurement v. The first measurement seeds the state
// with covariance equal to the measurement noise.
func (k *Kalman) Next(_ float64, v r3.Vector) r3.Vector {
	z := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	if !k.seed {
		k.seed = true
		k.x.CopyVec(z)
		k.p.Copy(k.r)
		return v
	}

	var pPred mat.Dense
	pPred.Add(k.p, k.q)

	var s, sInv mat.Dense
	s.Add(&pPred, k.r)
	if err := sInv.Inverse(&s); err != nil {
		return k.state()
	}

	var gain mat.Dense
	gain.Mul(&pPred, &sInv)

	var innov, corr mat.VecDense
	innov.SubVec(z, k.x)
	corr.MulVec(&gain, &innov)
	k.x.AddVec(k.x, &corr)

	var ikh mat.Dense
	ikh.Sub(k.eye, &gain)
	k.p.Mul(&ikh, &pPred)

	return k.state()
}

func (k *Kalman) state() r3.Vector {
	return r3.Vector{X: k.x.AtVec(0), Y: k.x.AtVec(1), Z: k.x.AtVec(2)}
}
