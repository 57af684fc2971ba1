package retarget

// curveSamples is the resolution of a sampled calibration curve.
const curveSamples = 64

// curve is a Catmull-Rom spline through four control points with
// ascending, evenly spaced x, sampled once into a lookup table.
type curve struct {
	x0, step float64
	table    [curveSamples]float64
}

func newCurve(xs, ys [4]float64) *curve {
	c := &curve{x0: xs[0], step: (xs[3] - xs[0]) / (curveSamples - 1)}
	seg := 0
	for s := range c.table {
		x := c.x0 + float64(s)*c.step
		for seg < 2 && x > xs[seg+1] {
			seg++
		}
		t := (x - xs[seg]) / (xs[seg+1] - xs[seg])
		p0 := ys[max(seg-1, 0)]
		p3 := ys[min(seg+2, 3)]
		c.table[s] = catmullRom(p0, ys[seg], ys[seg+1], p3, t)
	}
	return c
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2, t3 := t*t, t*t*t
	return 0.5 * (2*p1 +
		(p2-p0)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(3*p1-p0-3*p2+p3)*t3)
}

// at evaluates the curve, holding the end values outside its range.
func (c *curve) at(x float64) float64 {
	if c.step <= 0 {
		return c.table[0]
	}
	f := (x - c.x0) / c.step
	if f <= 0 {
		return c.table[0]
	}
	i := int(f)
	if i >= curveSamples-1 {
		return c.table[curveSamples-1]
	}
	frac := f - float64(i)
	return c.table[i] + frac*(c.table[i+1]-c.table[i])
}

// Blink envelopes keyed by eye width (normalized image units): below the
// low curve the eye counts as closed, above the high curve as open.
var (
	blinkWidths = [4]float64{0.02, 0.04, 0.06, 0.08}
	blinkLow    = [4]float64{0.10, 0.12, 0.14, 0.15}
	blinkHigh   = [4]float64{0.26, 0.28, 0.30, 0.31}
)
