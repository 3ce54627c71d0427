package mantle

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// doubleConePositions lays out an apex at the origin with two triangle
// fans: one ring below, one ring above. The fans meet only at the apex.
func doubleConePositions() []mgl64.Vec3 {
	ring := func(z float64, offset float64) []mgl64.Vec3 {
		var points []mgl64.Vec3
		for k := 0; k < 3; k++ {
			angle := offset + 2*math.Pi*float64(k)/3
			points = append(points, mgl64.Vec3{math.Cos(angle), math.Sin(angle), z})
		}
		return points
	}

	positions := []mgl64.Vec3{{0, 0, 0}}
	positions = append(positions, ring(-1, math.Pi/2)...)
	positions = append(positions, ring(1, math.Pi/2)...)

	return positions
}

func doubleConeSurface() *Surface {
	positions := doubleConePositions()
	masses := make([]float64, len(positions))
	for i := range masses {
		masses[i] = 1
	}

	triangles := [][3]int{
		// lower fan
		{0, 1, 2}, {0, 2, 3}, {0, 3, 1},
		// upper fan
		{0, 4, 5}, {0, 5, 6}, {0, 6, 4},
	}

	return buildSurface(positions, masses, triangles)
}

func TestPartitionVertexNeighbourhood(t *testing.T) {
	s := doubleConeSurface()
	p := NewCollisionPipeline(s, 0)
	pincher := NewMeshPincher(s, p)

	components := pincher.PartitionVertexNeighbourhood(0)
	if len(components) != 2 {
		t.Fatalf("apex fans into %d components, want 2", len(components))
	}
	if len(components[0])+len(components[1]) != 6 {
		t.Errorf("components %v do not cover the 6 incident triangles", components)
	}

	// a ring vertex has a single connected fan
	components = pincher.PartitionVertexNeighbourhood(1)
	if len(components) != 1 {
		t.Errorf("ring vertex fans into %d components, want 1", len(components))
	}
}

func TestPinchSeparatesDoubleCone(t *testing.T) {
	s := doubleConeSurface()
	p := NewCollisionPipeline(s, 0)
	pincher := NewMeshPincher(s, p)

	pincher.ProcessMesh()

	if s.Mesh.NumVertices() != 8 {
		t.Fatalf("NumVertices = %d, want 8 after the apex split", s.Mesh.NumVertices())
	}

	// both the original apex and its copy carry one fan of three triangles
	if got := len(s.Mesh.VertexToTriangleMap[0]); got != 3 {
		t.Errorf("original apex has %d incident triangles, want 3", got)
	}
	if got := len(s.Mesh.VertexToTriangleMap[7]); got != 3 {
		t.Errorf("duplicate apex has %d incident triangles, want 3", got)
	}

	// the two fans must no longer share any vertex
	inFan := map[int]bool{}
	for _, tri := range s.Mesh.VertexToTriangleMap[0] {
		for _, v := range s.Mesh.Triangle(tri) {
			inFan[v] = true
		}
	}
	for _, tri := range s.Mesh.VertexToTriangleMap[7] {
		for _, v := range s.Mesh.Triangle(tri) {
			if inFan[v] {
				t.Errorf("vertex %d is shared between the separated fans", v)
			}
		}
	}

	// the split mesh certifies intersection-free
	p.AssertMeshIsIntersectionFree(false)
}

func TestPinchIsIdempotent(t *testing.T) {
	s := doubleConeSurface()
	p := NewCollisionPipeline(s, 0)
	pincher := NewMeshPincher(s, p)

	pincher.ProcessMesh()

	vertices := s.Mesh.NumVertices()
	triangles := s.Mesh.NumTriangles()
	liveTriangles := 0
	for i := 0; i < triangles; i++ {
		if !s.Mesh.TriangleIsDeleted(i) {
			liveTriangles++
		}
	}

	pincher.ProcessMesh()

	if s.Mesh.NumVertices() != vertices {
		t.Errorf("second pass changed the vertex count: %d -> %d", vertices, s.Mesh.NumVertices())
	}
	if s.Mesh.NumTriangles() != triangles {
		t.Errorf("second pass changed the triangle slots: %d -> %d", triangles, s.Mesh.NumTriangles())
	}

	liveAfter := 0
	for i := 0; i < s.Mesh.NumTriangles(); i++ {
		if !s.Mesh.TriangleIsDeleted(i) {
			liveAfter++
		}
	}
	if liveAfter != liveTriangles {
		t.Errorf("second pass changed the live triangle count: %d -> %d", liveTriangles, liveAfter)
	}
}

func TestPinchRollsBackOnCollision(t *testing.T) {
	s := doubleConeSurface()

	// plant a triangle piercing an upper-fan face: the upper fan is the
	// component the pincher retargets, so its copies intersect the blocker
	faceCentroid := s.Position(0).Add(s.Position(4)).Add(s.Position(5)).Mul(1.0 / 3)
	faceNormal := s.Position(4).Sub(s.Position(0)).Cross(s.Position(5).Sub(s.Position(0))).Normalize()
	tangent := s.Position(4).Sub(s.Position(0)).Normalize()

	v0 := s.AddVertex(faceCentroid.Add(faceNormal.Mul(0.3)), 1)
	v1 := s.AddVertex(faceCentroid.Sub(faceNormal.Mul(0.3)).Add(tangent.Mul(0.1)), 1)
	v2 := s.AddVertex(faceCentroid.Sub(faceNormal.Mul(0.3)).Sub(tangent.Mul(0.1)), 1)
	s.AddTriangle([3]int{v0, v1, v2})

	p := NewCollisionPipeline(s, 0)
	pincher := NewMeshPincher(s, p)

	verticesBefore := s.Mesh.NumVertices()
	trianglesBefore := s.Mesh.NumTriangles()
	positionsBefore := append([]mgl64.Vec3(nil), s.Positions...)
	adjacencyBefore := append([]int(nil), s.Mesh.VertexToTriangleMap[0]...)

	components := pincher.PartitionVertexNeighbourhood(0)
	if len(components) != 2 {
		t.Fatalf("expected 2 components at the apex, got %d", len(components))
	}

	if pincher.PullApartVertex(0, components) {
		t.Fatal("pinch must abort when a new triangle would intersect the mesh")
	}

	if s.Mesh.NumVertices() != verticesBefore {
		t.Errorf("vertex count changed by rollback: %d -> %d", verticesBefore, s.Mesh.NumVertices())
	}
	if s.Mesh.NumTriangles() != trianglesBefore {
		t.Errorf("triangle count changed by rollback: %d -> %d", trianglesBefore, s.Mesh.NumTriangles())
	}
	if len(s.Positions) != len(positionsBefore) {
		t.Fatalf("positions length changed by rollback")
	}
	for i := range positionsBefore {
		if s.Positions[i] != positionsBefore[i] {
			t.Errorf("position %d changed by rollback: %v -> %v", i, positionsBefore[i], s.Positions[i])
		}
	}

	adjacencyAfter := s.Mesh.VertexToTriangleMap[0]
	if len(adjacencyAfter) != len(adjacencyBefore) {
		t.Fatalf("apex adjacency changed by rollback: %v -> %v", adjacencyBefore, adjacencyAfter)
	}
	for i := range adjacencyBefore {
		if adjacencyAfter[i] != adjacencyBefore[i] {
			t.Errorf("apex adjacency changed by rollback: %v -> %v", adjacencyBefore, adjacencyAfter)
		}
	}
}
