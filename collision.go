package mantle

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Collision is one continuous contact between four vertices: a point
// against a triangle, or an edge pair. The barycentric coordinates are
// stored unsigned; the impulse application signs them per kind
// ({+,-,-,-} for point-triangle, {+,+,-,-} for edge-edge).
type Collision struct {
	IsEdgeEdge             bool
	VertexIndices          [4]int
	Normal                 mgl64.Vec3
	BarycentricCoordinates [4]float64
	RelativeDisplacement   float64
}

// ContainsVertex reports whether the collision touches the given vertex
func (c *Collision) ContainsVertex(v int) bool {
	return c.VertexIndices[0] == v || c.VertexIndices[1] == v ||
		c.VertexIndices[2] == v || c.VertexIndices[3] == v
}

// Overlaps reports whether two collisions share a vertex
func (c *Collision) Overlaps(other *Collision) bool {
	for _, v := range other.VertexIndices {
		if c.ContainsVertex(v) {
			return true
		}
	}

	return false
}

// Intersection records a static edge-triangle crossing, a violation of
// the mesh invariant
type Intersection struct {
	EdgeIndex     int
	TriangleIndex int
}

// ImpactZone groups collisions sharing vertices transitively; the
// external zone solver treats each zone as one constrained system
type ImpactZone struct {
	Collisions []Collision
	Solved     bool
}

// candidate tags in a collision candidate triple
const (
	pointTriangleTag = 0
	edgeEdgeTag      = 1
)

// Candidate is a broad-phase pair to be checked by the narrow phase.
// For Tag == 0, A is a triangle and B a vertex; for Tag == 1 both are
// edges.
type Candidate struct {
	A, B int
	Tag  int
}

func candidateLess(a, b Candidate) bool {
	if a.A != b.A {
		return a.A < b.A
	}
	if a.B != b.B {
		return a.B < b.B
	}

	return a.Tag < b.Tag
}
