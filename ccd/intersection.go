package ccd

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// orient3D returns six times the signed volume of the tetrahedron
// (a, b, c, d). Positive when d is on the side of plane (a, b, c) that
// makes (a, b, c) counter-clockwise.
func orient3D(a, b, c, d mgl64.Vec3) float64 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)

	return ab.Cross(ac).Dot(ad)
}

// SegmentTriangleIntersection tests segment (p, q) against triangle
// (a, b, c) at rest. The indices keep the test order-stable: callers
// sort triangle triples ascending before invoking, and identical inputs
// always produce identical answers. Configurations where a signed
// volume is exactly zero (segment endpoint on the plane, segment
// through an edge or vertex, coplanar segment) report a hit only when
// degenerateCountsAsHit is set.
func SegmentTriangleIntersection(
	p mgl64.Vec3, pIdx int,
	q mgl64.Vec3, qIdx int,
	a mgl64.Vec3, aIdx int,
	b mgl64.Vec3, bIdx int,
	c mgl64.Vec3, cIdx int,
	degenerateCountsAsHit bool,
) bool {
	hit, _, _, _, _, _ := segmentTriangleTest(p, q, a, b, c, degenerateCountsAsHit)

	return hit
}

// SegmentTriangleIntersectionParams is SegmentTriangleIntersection
// reporting the segment parameter s, the triangle barycentric weights
// (u, v, w), and a unit normal on a hit.
func SegmentTriangleIntersectionParams(
	p mgl64.Vec3, pIdx int,
	q mgl64.Vec3, qIdx int,
	a mgl64.Vec3, aIdx int,
	b mgl64.Vec3, bIdx int,
	c mgl64.Vec3, cIdx int,
	degenerateCountsAsHit bool,
) (hit bool, s float64, u, v, w float64, normal mgl64.Vec3) {
	return segmentTriangleTest(p, q, a, b, c, degenerateCountsAsHit)
}

func segmentTriangleTest(p, q, a, b, c mgl64.Vec3, degenerateCountsAsHit bool) (bool, float64, float64, float64, float64, mgl64.Vec3) {
	vp := orient3D(a, b, c, p)
	vq := orient3D(a, b, c, q)

	normal := b.Sub(a).Cross(c.Sub(a))
	if n := normal.Len(); n > 0 {
		normal = normal.Mul(1 / n)
	}

	if vp == 0 && vq == 0 {
		// segment lies in the triangle's plane
		if !degenerateCountsAsHit {
			return false, 0, 0, 0, 0, normal
		}

		return coplanarSegmentTriangleOverlap(p, q, a, b, c), 0, 0, 0, 0, normal
	}

	if vp > 0 && vq > 0 {
		return false, 0, 0, 0, 0, normal
	}
	if vp < 0 && vq < 0 {
		return false, 0, 0, 0, 0, normal
	}
	if (vp == 0 || vq == 0) && !degenerateCountsAsHit {
		return false, 0, 0, 0, 0, normal
	}

	// the segment crosses the plane; check it passes within the triangle
	wa := orient3D(p, q, b, c)
	wb := orient3D(p, q, c, a)
	wc := orient3D(p, q, a, b)

	// crossing orientation flips the sign convention of the edge volumes
	if vp > vq {
		wa, wb, wc = -wa, -wb, -wc
	}

	if wa < 0 || wb < 0 || wc < 0 {
		return false, 0, 0, 0, 0, normal
	}
	if (wa == 0 || wb == 0 || wc == 0) && !degenerateCountsAsHit {
		return false, 0, 0, 0, 0, normal
	}

	s := 0.0
	if vp != vq {
		s = vp / (vp - vq)
	}

	sum := wa + wb + wc
	u, v, w := 1.0/3, 1.0/3, 1.0/3
	if sum != 0 {
		u, v, w = wa/sum, wb/sum, wc/sum
	}

	return true, s, u, v, w, normal
}

// coplanarSegmentTriangleOverlap decides the fully degenerate case by
// projecting onto the triangle's dominant plane and testing in 2D.
func coplanarSegmentTriangleOverlap(p, q, a, b, c mgl64.Vec3) bool {
	n := b.Sub(a).Cross(c.Sub(a))
	ax, ay := dominantAxes(n)

	p2 := [2]float64{p[ax], p[ay]}
	q2 := [2]float64{q[ax], q[ay]}
	a2 := [2]float64{a[ax], a[ay]}
	b2 := [2]float64{b[ax], b[ay]}
	c2 := [2]float64{c[ax], c[ay]}

	if pointInTriangle2D(p2, a2, b2, c2) || pointInTriangle2D(q2, a2, b2, c2) {
		return true
	}

	return segmentsIntersect2D(p2, q2, a2, b2) ||
		segmentsIntersect2D(p2, q2, b2, c2) ||
		segmentsIntersect2D(p2, q2, c2, a2)
}

func dominantAxes(n mgl64.Vec3) (int, int) {
	nx, ny, nz := math.Abs(n.X()), math.Abs(n.Y()), math.Abs(n.Z())

	switch {
	case nx >= ny && nx >= nz:
		return 1, 2
	case ny >= nz:
		return 0, 2
	default:
		return 0, 1
	}
}

func signedArea2D(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func pointInTriangle2D(p, a, b, c [2]float64) bool {
	d0 := signedArea2D(a, b, p)
	d1 := signedArea2D(b, c, p)
	d2 := signedArea2D(c, a, p)

	hasNeg := d0 < 0 || d1 < 0 || d2 < 0
	hasPos := d0 > 0 || d1 > 0 || d2 > 0

	return !(hasNeg && hasPos)
}

func segmentsIntersect2D(p0, p1, q0, q1 [2]float64) bool {
	d0 := signedArea2D(q0, q1, p0)
	d1 := signedArea2D(q0, q1, p1)
	d2 := signedArea2D(p0, p1, q0)
	d3 := signedArea2D(p0, p1, q1)

	if ((d0 > 0 && d1 < 0) || (d0 < 0 && d1 > 0)) &&
		((d2 > 0 && d3 < 0) || (d2 < 0 && d3 > 0)) {
		return true
	}

	onSegment := func(a, b, p [2]float64) bool {
		return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
			math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
	}

	if d0 == 0 && onSegment(q0, q1, p0) {
		return true
	}
	if d1 == 0 && onSegment(q0, q1, p1) {
		return true
	}
	if d2 == 0 && onSegment(p0, p1, q0) {
		return true
	}
	if d3 == 0 && onSegment(p0, p1, q1) {
		return true
	}

	return false
}

// TriangleTriangleIntersection tests two triangles at rest for any
// intersection, running each edge of one against the other triangle
// both ways. Edge tests sharing a vertex with the opposing triangle are
// skipped, so adjacent triangles do not self-report.
func TriangleTriangleIntersection(
	t0 [3]mgl64.Vec3, idx0 [3]int,
	t1 [3]mgl64.Vec3, idx1 [3]int,
) bool {
	edges := [3][2]int{{0, 1}, {1, 2}, {2, 0}}

	for _, e := range edges {
		if edgeVsTriangle(t0[e[0]], idx0[e[0]], t0[e[1]], idx0[e[1]], t1, idx1) {
			return true
		}
		if edgeVsTriangle(t1[e[0]], idx1[e[0]], t1[e[1]], idx1[e[1]], t0, idx0) {
			return true
		}
	}

	return false
}

func edgeVsTriangle(p mgl64.Vec3, pIdx int, q mgl64.Vec3, qIdx int, tri [3]mgl64.Vec3, idx [3]int) bool {
	if pIdx == idx[0] || pIdx == idx[1] || pIdx == idx[2] ||
		qIdx == idx[0] || qIdx == idx[1] || qIdx == idx[2] {
		return false
	}

	v, i := sortTriangleVertices(tri, idx)

	return SegmentTriangleIntersection(p, pIdx, q, qIdx, v[0], i[0], v[1], i[1], v[2], i[2], true)
}

// sortTriangleVertices orders a triangle's vertices by ascending index,
// which makes the predicates invariant under the caller's winding.
func sortTriangleVertices(v [3]mgl64.Vec3, idx [3]int) ([3]mgl64.Vec3, [3]int) {
	if idx[1] < idx[0] {
		v[0], v[1], idx[0], idx[1] = v[1], v[0], idx[1], idx[0]
	}
	if idx[2] < idx[1] {
		v[1], v[2], idx[1], idx[2] = v[2], v[1], idx[2], idx[1]
	}
	if idx[1] < idx[0] {
		v[0], v[1], idx[0], idx[1] = v[1], v[0], idx[1], idx[0]
	}

	return v, idx
}
