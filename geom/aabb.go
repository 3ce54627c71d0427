package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// FromPoints builds the smallest AABB containing all given points
func FromPoints(points ...mgl64.Vec3) AABB {
	aabb := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		aabb = aabb.ExtendPoint(p)
	}

	return aabb
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// ExtendPoint grows the AABB so it contains the given point
func (a AABB) ExtendPoint(p mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		a.Min[i] = math.Min(a.Min[i], p[i])
		a.Max[i] = math.Max(a.Max[i], p[i])
	}

	return a
}

// Union returns the smallest AABB containing both boxes
func (a AABB) Union(other AABB) AABB {
	for i := 0; i < 3; i++ {
		a.Min[i] = math.Min(a.Min[i], other.Min[i])
		a.Max[i] = math.Max(a.Max[i], other.Max[i])
	}

	return a
}

// Pad expands the AABB by the given amount on every side
func (a AABB) Pad(padding float64) AABB {
	offset := mgl64.Vec3{padding, padding, padding}

	return AABB{Min: a.Min.Sub(offset), Max: a.Max.Add(offset)}
}
