package ccd

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// barycentric slack when classifying a coplanarity root as inside
	insideTolerance = 1e-6
	// maximum gap between primitives at a coplanarity root for it to
	// count as contact, relative to the configuration's extent
	contactTolerance = 1e-6
	// coplanarity function magnitudes below this are treated as
	// identically zero (parallel / fully coplanar motion)
	degenerateCubicTolerance = 1e-14
)

// PointTriangleCollision detects continuous collision over t in [0, 1]
// between a point moving x -> xNew and a triangle moving
// (a, b, c) -> (aNew, bNew, cNew). On a hit it reports the barycentric
// weights of the contact point, a unit normal with the point on the
// positive side at t = 0, and the relative displacement along the
// normal over the interval. Callers sort the triangle ascending by
// index so the test is invariant under winding.
func PointTriangleCollision(
	stats *Stats,
	x, xNew mgl64.Vec3, xIdx int,
	a, aNew mgl64.Vec3, aIdx int,
	b, bNew mgl64.Vec3, bIdx int,
	c, cNew mgl64.Vec3, cIdx int,
) (hit bool, s1, s2, s3 float64, normal mgl64.Vec3, relDisp float64) {
	stats.countFiltered()

	dx := xNew.Sub(x)
	da := aNew.Sub(a)
	db := bNew.Sub(b)
	dc := cNew.Sub(c)

	coplanarity := func(t float64) float64 {
		xt := x.Add(dx.Mul(t))
		at := a.Add(da.Mul(t))
		bt := b.Add(db.Mul(t))
		ct := c.Add(dc.Mul(t))

		return orient3D(at, bt, ct, xt)
	}

	scale := maxExtent(x, xNew, a, aNew, b, bNew, c, cNew)
	roots, degenerate := coplanarityRoots(coplanarity, scale)
	if degenerate {
		stats.countParallel()
		// motion stays (near) coplanar; report contact if the point
		// is on the triangle at any sampled time
		roots = []float64{0, 0.5, 1}
	}

	for _, t := range roots {
		stats.countExact()

		xt := x.Add(dx.Mul(t))
		at := a.Add(da.Mul(t))
		bt := b.Add(db.Mul(t))
		ct := c.Add(dc.Mul(t))

		dist, w1, w2, w3, _ := PointTriangleProximity(xt, at, bt, ct)
		if dist > contactTolerance*(1+scale) {
			continue
		}
		if !baryInside(w1) || !baryInside(w2) || !baryInside(w3) {
			continue
		}

		n := bt.Sub(at).Cross(ct.Sub(at))
		if l := n.Len(); l > degenerateNormalTolerance {
			n = n.Mul(1 / l)
		} else {
			n = dx.Sub(da.Mul(w1).Add(db.Mul(w2)).Add(dc.Mul(w3)))
			if l := n.Len(); l > degenerateNormalTolerance {
				n = n.Mul(1 / l)
			} else {
				continue
			}
		}

		rel := dx.Sub(da.Mul(w1).Add(db.Mul(w2)).Add(dc.Mul(w3)))

		// orient so the point is on the positive side at t = 0
		side := n.Dot(x.Sub(a.Mul(w1).Add(b.Mul(w2)).Add(c.Mul(w3))))
		if side < 0 {
			n = n.Mul(-1)
		} else if side == 0 && n.Dot(rel) > 0 {
			n = n.Mul(-1)
		}

		return true, w1, w2, w3, n, n.Dot(rel)
	}

	return false, 0, 0, 0, mgl64.Vec3{}, 0
}

// SegmentSegmentCollision detects continuous collision over t in [0, 1]
// between segment (p0, p1) moving to (p0New, p1New) and segment
// (q0, q1) moving to (q0New, q1New). On a hit it reports the contact
// parameters along each segment, a unit normal oriented from segment Q
// toward segment P at t = 0, and the relative displacement along the
// normal. Callers order each edge's vertices ascending by index.
func SegmentSegmentCollision(
	stats *Stats,
	p0, p0New mgl64.Vec3, p0Idx int,
	p1, p1New mgl64.Vec3, p1Idx int,
	q0, q0New mgl64.Vec3, q0Idx int,
	q1, q1New mgl64.Vec3, q1Idx int,
) (hit bool, sP, sQ float64, normal mgl64.Vec3, relDisp float64) {
	stats.countFiltered()

	dp0 := p0New.Sub(p0)
	dp1 := p1New.Sub(p1)
	dq0 := q0New.Sub(q0)
	dq1 := q1New.Sub(q1)

	coplanarity := func(t float64) float64 {
		a := p0.Add(dp0.Mul(t))
		b := p1.Add(dp1.Mul(t))
		c := q0.Add(dq0.Mul(t))
		d := q1.Add(dq1.Mul(t))

		return b.Sub(a).Cross(d.Sub(c)).Dot(c.Sub(a))
	}

	scale := maxExtent(p0, p0New, p1, p1New, q0, q0New, q1, q1New)
	roots, degenerate := coplanarityRoots(coplanarity, scale)
	if degenerate {
		stats.countParallel()
		roots = []float64{0, 0.5, 1}
	}

	for _, t := range roots {
		stats.countExact()

		a := p0.Add(dp0.Mul(t))
		b := p1.Add(dp1.Mul(t))
		c := q0.Add(dq0.Mul(t))
		d := q1.Add(dq1.Mul(t))

		dist, s, u, _ := EdgeEdgeProximity(a, b, c, d)
		if dist > contactTolerance*(1+scale) {
			continue
		}
		if !baryInside(s) || !baryInside(u) {
			continue
		}

		n := b.Sub(a).Cross(d.Sub(c))
		if l := n.Len(); l > degenerateNormalTolerance {
			n = n.Mul(1 / l)
		} else {
			// parallel at contact time, use the static separation
			_, _, _, n = EdgeEdgeProximity(p0, p1, q0, q1)
			if n.Len() < 0.5 {
				continue
			}
		}

		relP := dp0.Mul(1 - s).Add(dp1.Mul(s))
		relQ := dq0.Mul(1 - u).Add(dq1.Mul(u))
		rel := relP.Sub(relQ)

		// orient from edge Q toward edge P at t = 0
		cpP := p0.Add(p1.Sub(p0).Mul(s))
		cpQ := q0.Add(q1.Sub(q0).Mul(u))
		side := n.Dot(cpP.Sub(cpQ))
		if side < 0 {
			n = n.Mul(-1)
		} else if side == 0 && n.Dot(rel) > 0 {
			n = n.Mul(-1)
		}

		return true, s, u, n, n.Dot(rel)
	}

	return false, 0, 0, mgl64.Vec3{}, 0
}

func baryInside(w float64) bool {
	return w >= -insideTolerance && w <= 1+insideTolerance
}

func maxExtent(points ...mgl64.Vec3) float64 {
	m := 0.0
	for _, p := range points {
		m = math.Max(m, math.Max(math.Abs(p.X()), math.Max(math.Abs(p.Y()), math.Abs(p.Z()))))
	}

	return m
}

// coplanarityRoots finds the zeros of the cubic coplanarity function on
// [0, 1]. The cubic is reconstructed exactly from four samples, its
// derivative's critical points split the interval into monotonic
// pieces, and each sign change is bisected. degenerate is true when the
// function is identically zero at the problem's scale.
func coplanarityRoots(f func(float64) float64, scale float64) (roots []float64, degenerate bool) {
	f0 := f(0)
	f13 := f(1.0 / 3)
	f23 := f(2.0 / 3)
	f1 := f(1)

	// cubic coefficients from samples at 0, 1/3, 2/3, 1
	a3 := 4.5 * (f1 - 3*f23 + 3*f13 - f0)
	a2 := 4.5*(f23-2*f13+f0) - a3
	a1 := 3*(f13-f0) - a3/9 - a2/3
	a0 := f0

	vol := scale * scale * scale
	eps := degenerateCubicTolerance * (1 + vol)
	if math.Abs(a3) < eps && math.Abs(a2) < eps && math.Abs(a1) < eps && math.Abs(a0) < eps {
		return nil, true
	}

	eval := func(t float64) float64 {
		return ((a3*t+a2)*t+a1)*t + a0
	}

	// monotonic breakpoints from the derivative 3*a3*t^2 + 2*a2*t + a1
	breaks := []float64{0}
	for _, t := range quadraticRoots(3*a3, 2*a2, a1) {
		if t > 0 && t < 1 {
			breaks = append(breaks, t)
		}
	}
	breaks = append(breaks, 1)
	sortFloats(breaks)

	for _, t := range breaks {
		if eval(t) == 0 {
			roots = appendRoot(roots, t)
		}
	}

	for i := 0; i+1 < len(breaks); i++ {
		lo, hi := breaks[i], breaks[i+1]
		flo, fhi := eval(lo), eval(hi)

		if flo != 0 && fhi != 0 && (flo > 0) != (fhi > 0) {
			for iter := 0; iter < 80; iter++ {
				mid := 0.5 * (lo + hi)
				fm := eval(mid)
				if fm == 0 {
					lo, hi = mid, mid
					break
				}
				if (fm > 0) == (flo > 0) {
					lo, flo = mid, fm
				} else {
					hi = mid
				}
			}
			roots = appendRoot(roots, 0.5*(lo+hi))
		}
	}

	sortFloats(roots)

	return roots, false
}

func appendRoot(roots []float64, t float64) []float64 {
	for _, r := range roots {
		if math.Abs(r-t) < 1e-12 {
			return roots
		}
	}

	return append(roots, t)
}

func quadraticRoots(a, b, c float64) []float64 {
	if a == 0 {
		if b == 0 {
			return nil
		}
		return []float64{-c / b}
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}

	sq := math.Sqrt(disc)
	// numerically stable form
	q := -0.5 * (b + math.Copysign(sq, b))
	roots := []float64{q / a}
	if q != 0 {
		roots = append(roots, c/q)
	}

	return roots
}

func sortFloats(x []float64) {
	for i := 1; i < len(x); i++ {
		for j := i; j > 0 && x[j] < x[j-1]; j-- {
			x[j], x[j-1] = x[j-1], x[j]
		}
	}
}
