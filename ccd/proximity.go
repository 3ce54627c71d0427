package ccd

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const degenerateNormalTolerance = 1e-12

// PointTriangleProximity returns the distance from point x to triangle
// (a, b, c), the barycentric weights (s1, s2, s3) of the closest point,
// and a unit normal pointing from the closest point toward x. When x
// lies on the triangle the plane normal is returned instead.
func PointTriangleProximity(x, a, b, c mgl64.Vec3) (distance float64, s1, s2, s3 float64, normal mgl64.Vec3) {
	s1, s2, s3 = closestPointTriangleWeights(x, a, b, c)

	closest := a.Mul(s1).Add(b.Mul(s2)).Add(c.Mul(s3))
	diff := x.Sub(closest)
	distance = diff.Len()

	if distance > degenerateNormalTolerance {
		normal = diff.Mul(1 / distance)
	} else {
		normal = b.Sub(a).Cross(c.Sub(a))
		if n := normal.Len(); n > degenerateNormalTolerance {
			normal = normal.Mul(1 / n)
		} else {
			normal = mgl64.Vec3{0, 0, 0}
		}
	}

	return distance, s1, s2, s3, normal
}

// closestPointTriangleWeights computes the barycentric weights of the
// point on triangle (a, b, c) closest to x, walking the Voronoi regions
// of the triangle.
func closestPointTriangleWeights(x, a, b, c mgl64.Vec3) (float64, float64, float64) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ax := x.Sub(a)

	d1 := ab.Dot(ax)
	d2 := ac.Dot(ax)
	if d1 <= 0 && d2 <= 0 {
		return 1, 0, 0 // vertex a
	}

	bx := x.Sub(b)
	d3 := ab.Dot(bx)
	d4 := ac.Dot(bx)
	if d3 >= 0 && d4 <= d3 {
		return 0, 1, 0 // vertex b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return 1 - v, v, 0 // edge ab
	}

	cx := x.Sub(c)
	d5 := ab.Dot(cx)
	d6 := ac.Dot(cx)
	if d6 >= 0 && d5 <= d6 {
		return 0, 0, 1 // vertex c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return 1 - w, 0, w // edge ac
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return 0, 1 - w, w // edge bc
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom

	return 1 - v - w, v, w // interior
}

// EdgeEdgeProximity returns the distance between segments (p0, p1) and
// (q0, q1), the parameters s (on P) and t (on Q) of the closest points,
// and a unit normal pointing from Q's closest point toward P's. When the
// segments touch, the normal falls back to the normalized cross product
// of the directions, and to the zero vector when that cross product
// vanishes too (parallel or degenerate segments).
func EdgeEdgeProximity(p0, p1, q0, q1 mgl64.Vec3) (distance float64, s, t float64, normal mgl64.Vec3) {
	s, t = closestSegmentSegmentParams(p0, p1, q0, q1)

	cp := p0.Add(p1.Sub(p0).Mul(s))
	cq := q0.Add(q1.Sub(q0).Mul(t))
	diff := cp.Sub(cq)
	distance = diff.Len()

	if distance > degenerateNormalTolerance {
		normal = diff.Mul(1 / distance)
	} else {
		normal = p1.Sub(p0).Cross(q1.Sub(q0))
		if n := normal.Len(); n > degenerateNormalTolerance {
			normal = normal.Mul(1 / n)
		} else {
			normal = mgl64.Vec3{0, 0, 0}
		}
	}

	return distance, s, t, normal
}

// closestSegmentSegmentParams computes the clamped parameters of the
// closest points between two segments.
func closestSegmentSegmentParams(p0, p1, q0, q1 mgl64.Vec3) (float64, float64) {
	d1 := p1.Sub(p0)
	d2 := q1.Sub(q0)
	r := p0.Sub(q0)

	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	if a <= degenerateNormalTolerance && e <= degenerateNormalTolerance {
		return 0, 0
	}
	if a <= degenerateNormalTolerance {
		return 0, clamp01(f / e)
	}

	c := d1.Dot(r)
	if e <= degenerateNormalTolerance {
		return clamp01(-c / a), 0
	}

	b := d1.Dot(d2)
	denom := a*e - b*b

	var s float64
	if denom != 0 {
		s = clamp01((b*f - c*e) / denom)
	}

	t := (b*s + f) / e
	if t < 0 {
		t = 0
		s = clamp01(-c / a)
	} else if t > 1 {
		t = 1
		s = clamp01((b - c) / a)
	}

	return s, t
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
