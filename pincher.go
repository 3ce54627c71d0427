package mantle

import (
	"github.com/akmonengine/mantle/ccd"
	"github.com/akmonengine/mantle/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// pinchSeparationFactor scales the proximity epsilon into the nudge
// applied to each duplicated vertex
const pinchSeparationFactor = 10.0

// MeshPincher splits vertices whose incident triangle fan has fallen
// into several connected components, separating the surface there. The
// split is validated against the live broad phase and rolled back when
// it would introduce an intersection.
type MeshPincher struct {
	surface  *Surface
	pipeline *CollisionPipeline
}

// NewMeshPincher creates a pincher over the surface and its pipeline
func NewMeshPincher(surface *Surface, pipeline *CollisionPipeline) *MeshPincher {
	return &MeshPincher{surface: surface, pipeline: pipeline}
}

// PartitionVertexNeighbourhood splits the triangles incident to a
// vertex into connected components, where two triangles connect iff
// they share an edge. Components are returned in discovery order.
func (mp *MeshPincher) PartitionVertexNeighbourhood(vertexIndex int) [][]int {
	m := mp.surface.Mesh

	remaining := append([]int(nil), m.VertexToTriangleMap[vertexIndex]...)

	var components [][]int

	for len(remaining) > 0 {
		var visited []int
		unvisited := []int{remaining[len(remaining)-1]}

		for len(unvisited) > 0 {
			current := unvisited[len(unvisited)-1]
			unvisited = unvisited[:len(unvisited)-1]

			remaining = removeFromList(remaining, current)
			visited = append(visited, current)

			for _, incident := range remaining {
				if !m.TrianglesAreAdjacent(current, incident) {
					continue
				}
				if containsInt(unvisited, incident) || containsInt(visited, incident) {
					continue
				}
				unvisited = append(unvisited, incident)
			}
		}

		components = append(components, visited)
	}

	return components
}

func containsInt(list []int, value int) bool {
	for _, x := range list {
		if x == value {
			return true
		}
	}

	return false
}

func removeFromList(list []int, value int) []int {
	for i, x := range list {
		if x == value {
			return append(list[:i], list[i+1:]...)
		}
	}

	return list
}

// PullApartVertex duplicates a vertex once per connected component
// (except the last), retargets each component's triangles to its copy,
// and nudges the copy toward the component's centroid. When collision
// safety is on and any new triangle would intersect the mesh, the
// operation rolls back and returns false.
func (mp *MeshPincher) PullApartVertex(vertexIndex int, connectedComponents [][]int) bool {
	s := mp.surface
	dx := pinchSeparationFactor * s.ProximityEpsilon

	var trianglesToDelete []int
	var trianglesToAdd [][3]int
	var verticesAdded []int

	for i := 0; i < len(connectedComponents)-1; i++ {
		duplicate := s.AddVertex(s.Position(vertexIndex), s.Masses[vertexIndex])
		verticesAdded = append(verticesAdded, duplicate)

		centroid := mgl64.Vec3{}

		for _, t := range connectedComponents[i] {
			newTriangle := s.Mesh.Triangle(t)

			for k := 0; k < 3; k++ {
				if newTriangle[k] == vertexIndex {
					newTriangle[k] = duplicate
				} else {
					centroid = centroid.Add(s.Position(newTriangle[k]))
				}
			}

			trianglesToAdd = append(trianglesToAdd, newTriangle)
			trianglesToDelete = append(trianglesToDelete, t)
		}

		centroid = centroid.Mul(1 / float64(len(connectedComponents[i])*2))

		position := s.Position(duplicate).Mul(1 - dx).Add(centroid.Mul(dx))
		s.SetPosition(duplicate, position)
		s.SetNewPosition(duplicate, position)
	}

	if s.CollisionSafety && mp.pinchWouldCollide(trianglesToAdd) {
		// abort the separation and restore the vertex tables
		for i := len(verticesAdded) - 1; i >= 0; i-- {
			s.RemoveVertex(verticesAdded[i])
		}
		return false
	}

	for _, tri := range trianglesToAdd {
		s.AddTriangle(tri)
	}
	for _, t := range trianglesToDelete {
		s.RemoveTriangle(t)
	}

	if s.CollisionSafety {
		mp.pipeline.AssertMeshIsIntersectionFree(false)
	}

	return true
}

// pinchWouldCollide checks the tentative triangles against the live
// mesh through the broad phase, and against each other
func (mp *MeshPincher) pinchWouldCollide(trianglesToAdd [][3]int) bool {
	s := mp.surface

	positionsOf := func(tri [3]int) [3]mgl64.Vec3 {
		return [3]mgl64.Vec3{s.Position(tri[0]), s.Position(tri[1]), s.Position(tri[2])}
	}

	for _, tri := range trianglesToAdd {
		bounds := geom.FromPoints(s.Position(tri[0]), s.Position(tri[1]), s.Position(tri[2]))

		var overlapping []int
		s.BroadPhase.GetPotentialTriangleCollisions(bounds, true, true, &overlapping)

		for _, other := range overlapping {
			if s.Mesh.TriangleIsDeleted(other) {
				continue
			}
			otherTri := s.Mesh.Triangle(other)

			if ccd.TriangleTriangleIntersection(positionsOf(tri), tri, positionsOf(otherTri), otherTri) {
				return true
			}
		}
	}

	for i := 0; i < len(trianglesToAdd); i++ {
		for j := i + 1; j < len(trianglesToAdd); j++ {
			if ccd.TriangleTriangleIntersection(
				positionsOf(trianglesToAdd[i]), trianglesToAdd[i],
				positionsOf(trianglesToAdd[j]), trianglesToAdd[j],
			) {
				return true
			}
		}
	}

	return false
}

// ProcessMesh scans every vertex and pulls apart those whose incident
// triangle fan is disconnected
func (mp *MeshPincher) ProcessMesh() {
	for i := 0; i < mp.surface.Mesh.NumVertices(); i++ {
		connectedComponents := mp.PartitionVertexNeighbourhood(i)

		if len(connectedComponents) > 1 {
			mp.PullApartVertex(i, connectedComponents)
		}
	}
}
