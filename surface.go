package mantle

import (
	"math"

	"github.com/akmonengine/mantle/ccd"
	"github.com/akmonengine/mantle/geom"
	"github.com/akmonengine/mantle/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultProximityEpsilon = 1e-4
	DefaultAABBPadding      = 1e-4
)

// InfiniteMass pins a vertex: solid geometry carries infinite mass, so
// its inverse mass is exactly zero and impulses never move it.
var InfiniteMass = math.Inf(1)

// Surface owns the evolving triangle mesh and everything the collision
// pipeline borrows: positions at the start of the step, predicted
// positions at the end, per-vertex velocities and masses, the broad
// phase, and the narrow-phase statistics.
type Surface struct {
	Mesh *mesh.TriMesh

	Positions    []mgl64.Vec3
	NewPositions []mgl64.Vec3
	Velocities   []mgl64.Vec3
	Masses       []float64

	ProximityEpsilon float64
	AABBPadding      float64
	CollisionSafety  bool
	Verbose          bool

	BroadPhase BroadPhase
	Stats      *ccd.Stats
}

// NewSurface wraps an existing mesh and position set. Velocities start
// at zero and the predicted positions coincide with the current ones.
// The broad phase is built immediately from continuous bounds.
func NewSurface(m *mesh.TriMesh, positions []mgl64.Vec3, masses []float64) *Surface {
	s := &Surface{
		Mesh:             m,
		Positions:        positions,
		NewPositions:     append([]mgl64.Vec3(nil), positions...),
		Velocities:       make([]mgl64.Vec3, len(positions)),
		Masses:           masses,
		ProximityEpsilon: DefaultProximityEpsilon,
		AABBPadding:      DefaultAABBPadding,
		CollisionSafety:  true,
		BroadPhase:       NewGridBroadPhase(),
		Stats:            &ccd.Stats{},
	}

	s.BroadPhase.UpdateBroadPhase(s, true)

	return s
}

// Position returns the current position of a vertex
func (s *Surface) Position(i int) mgl64.Vec3 {
	return s.Positions[i]
}

// NewPosition returns the predicted position of a vertex
func (s *Surface) NewPosition(i int) mgl64.Vec3 {
	return s.NewPositions[i]
}

// SetPosition moves a vertex and refreshes its broad phase entries
func (s *Surface) SetPosition(i int, p mgl64.Vec3) {
	s.Positions[i] = p
	s.updateVertexBroadPhase(i)
}

// SetNewPosition sets the predicted position of a vertex and refreshes
// its broad phase entries
func (s *Surface) SetNewPosition(i int, p mgl64.Vec3) {
	s.NewPositions[i] = p
	s.updateVertexBroadPhase(i)
}

func (s *Surface) updateVertexBroadPhase(i int) {
	s.BroadPhase.UpdateVertex(i, s.VertexBounds(i, true), s.VertexIsSolid(i))

	for _, e := range s.Mesh.VertexToEdgeMap[i] {
		s.BroadPhase.UpdateEdge(e, s.EdgeBounds(e, true), s.EdgeIsSolid(e))
	}
	for _, t := range s.Mesh.VertexToTriangleMap[i] {
		s.BroadPhase.UpdateTriangle(t, s.TriangleBounds(t, true), s.TriangleIsSolid(t))
	}
}

// VertexIsSolid reports whether a vertex is scripted geometry
func (s *Surface) VertexIsSolid(i int) bool {
	return math.IsInf(s.Masses[i], 1)
}

// EdgeIsSolid reports whether both endpoints of an edge are solid
func (s *Surface) EdgeIsSolid(e int) bool {
	edge := s.Mesh.Edge(e)

	return s.VertexIsSolid(edge[0]) && s.VertexIsSolid(edge[1])
}

// TriangleIsSolid reports whether all three vertices of a triangle are solid
func (s *Surface) TriangleIsSolid(t int) bool {
	tri := s.Mesh.Triangle(t)

	return s.VertexIsSolid(tri[0]) && s.VertexIsSolid(tri[1]) && s.VertexIsSolid(tri[2])
}

// VertexBounds returns the padded AABB of a vertex; continuous bounds
// span the current and predicted positions
func (s *Surface) VertexBounds(i int, continuous bool) geom.AABB {
	if continuous {
		return geom.FromPoints(s.Positions[i], s.NewPositions[i]).Pad(s.AABBPadding)
	}

	return geom.FromPoints(s.Positions[i]).Pad(s.AABBPadding)
}

// EdgeBounds returns the padded AABB of an edge
func (s *Surface) EdgeBounds(e int, continuous bool) geom.AABB {
	edge := s.Mesh.Edge(e)

	if continuous {
		return geom.FromPoints(
			s.Positions[edge[0]], s.Positions[edge[1]],
			s.NewPositions[edge[0]], s.NewPositions[edge[1]],
		).Pad(s.AABBPadding)
	}

	return geom.FromPoints(s.Positions[edge[0]], s.Positions[edge[1]]).Pad(s.AABBPadding)
}

// TriangleBounds returns the padded AABB of a triangle
func (s *Surface) TriangleBounds(t int, continuous bool) geom.AABB {
	tri := s.Mesh.Triangle(t)

	if continuous {
		return geom.FromPoints(
			s.Positions[tri[0]], s.Positions[tri[1]], s.Positions[tri[2]],
			s.NewPositions[tri[0]], s.NewPositions[tri[1]], s.NewPositions[tri[2]],
		).Pad(s.AABBPadding)
	}

	return geom.FromPoints(s.Positions[tri[0]], s.Positions[tri[1]], s.Positions[tri[2]]).Pad(s.AABBPadding)
}

// MeanEdgeLength averages the current length of all live edges
func (s *Surface) MeanEdgeLength() float64 {
	total := 0.0
	count := 0

	for e := 0; e < s.Mesh.NumEdges(); e++ {
		if s.Mesh.EdgeIsDeleted(e) {
			continue
		}
		edge := s.Mesh.Edge(e)
		total += s.Positions[edge[1]].Sub(s.Positions[edge[0]]).Len()
		count++
	}

	if count == 0 {
		return 0
	}

	return total / float64(count)
}

// AddVertex allocates a vertex with the given position and mass and
// registers it in the broad phase. Returns the new vertex index.
func (s *Surface) AddVertex(position mgl64.Vec3, mass float64) int {
	v := s.Mesh.AddVertex()

	s.Positions = append(s.Positions, position)
	s.NewPositions = append(s.NewPositions, position)
	s.Velocities = append(s.Velocities, mgl64.Vec3{})
	s.Masses = append(s.Masses, mass)

	s.BroadPhase.AddVertex(v, s.VertexBounds(v, true), s.VertexIsSolid(v))

	return v
}

// RemoveVertex deregisters a vertex. The backing slot is reclaimed only
// when the vertex is the last one, so other indices never move.
func (s *Surface) RemoveVertex(v int) {
	s.BroadPhase.RemoveVertex(v)
	s.Mesh.RemoveVertex(v)

	if s.Mesh.NumVertices() == v {
		s.Positions = s.Positions[:v]
		s.NewPositions = s.NewPositions[:v]
		s.Velocities = s.Velocities[:v]
		s.Masses = s.Masses[:v]
	}
}

// AddTriangle adds a triangle to the mesh and registers it, along with
// any edges it creates, in the broad phase. Returns the triangle index.
func (s *Surface) AddTriangle(tri [3]int) int {
	t := s.Mesh.AddTriangle(tri)

	s.BroadPhase.AddTriangle(t, s.TriangleBounds(t, true), s.TriangleIsSolid(t))
	for _, e := range s.Mesh.TriangleToEdgeMap[t] {
		s.BroadPhase.UpdateEdge(e, s.EdgeBounds(e, true), s.EdgeIsSolid(e))
	}

	return t
}

// RemoveTriangle tombstones a triangle and deregisters it; edges left
// without any incident triangle are deregistered too.
func (s *Surface) RemoveTriangle(t int) {
	edges := s.Mesh.TriangleToEdgeMap[t]

	s.Mesh.RemoveTriangle(t)
	s.BroadPhase.RemoveTriangle(t)

	for _, e := range edges {
		if s.Mesh.EdgeIsDeleted(e) {
			s.BroadPhase.RemoveEdge(e)
		}
	}
}
