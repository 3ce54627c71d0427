package mantle

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestBroadPhaseSolidDynamicPartition(t *testing.T) {
	bp := NewGridBroadPhase()

	aabb := unitBoxAt(mgl64.Vec3{0, 0, 0}, 0.5)
	bp.AddVertex(0, aabb, true)

	// toggling the solid flag must migrate the entry, never duplicate it
	bp.UpdateVertex(0, aabb, false)

	var solid, dynamic []int
	bp.GetPotentialVertexCollisions(universeQuery(), true, false, &solid)
	bp.GetPotentialVertexCollisions(universeQuery(), false, true, &dynamic)

	if len(solid) != 0 {
		t.Errorf("stale solid entry after flag toggle: %v", solid)
	}
	if len(dynamic) != 1 || dynamic[0] != 0 {
		t.Errorf("dynamic entry missing after flag toggle: %v", dynamic)
	}
}

func TestBroadPhaseRemoveCoversBothGrids(t *testing.T) {
	bp := NewGridBroadPhase()

	aabb := unitBoxAt(mgl64.Vec3{1, 2, 3}, 0.5)
	bp.AddEdge(5, aabb, true)
	bp.AddTriangle(9, aabb, false)

	bp.RemoveEdge(5)
	bp.RemoveTriangle(9)
	// removal is idempotent
	bp.RemoveEdge(5)

	var edges, triangles []int
	bp.GetPotentialEdgeCollisions(universeQuery(), true, true, &edges)
	bp.GetPotentialTriangleCollisions(universeQuery(), true, true, &triangles)

	if len(edges) != 0 || len(triangles) != 0 {
		t.Errorf("entries survived removal: edges %v, triangles %v", edges, triangles)
	}
}

func TestBroadPhaseQueryFlags(t *testing.T) {
	bp := NewGridBroadPhase()

	aabb := unitBoxAt(mgl64.Vec3{0, 0, 0}, 0.5)
	bp.AddTriangle(1, aabb, true)
	bp.AddTriangle(2, aabb, false)

	tests := []struct {
		name          string
		returnSolid   bool
		returnDynamic bool
		expected      int
	}{
		{"solid only", true, false, 1},
		{"dynamic only", false, true, 1},
		{"both", true, true, 2},
		{"neither", false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits []int
			bp.GetPotentialTriangleCollisions(universeQuery(), tt.returnSolid, tt.returnDynamic, &hits)
			if len(hits) != tt.expected {
				t.Errorf("hits = %v, want %d entries", hits, tt.expected)
			}
		})
	}
}

func TestBroadPhaseCachedAABB(t *testing.T) {
	bp := NewGridBroadPhase()

	aabb := unitBoxAt(mgl64.Vec3{3, 0, 0}, 0.25)
	bp.AddVertex(4, aabb, false)

	cached, ok := bp.VertexAABB(4, false)
	if !ok {
		t.Fatal("cached AABB not found")
	}
	if cached != aabb {
		t.Errorf("cached AABB = %v, want %v", cached, aabb)
	}

	if _, ok := bp.VertexAABB(4, true); ok {
		t.Error("vertex must not appear in the solid grid")
	}
}

func TestBroadPhaseRebuildFromSurface(t *testing.T) {
	s := twoTriangleSurface(0.001)

	s.BroadPhase.UpdateBroadPhase(s, true)

	var triangles []int
	s.BroadPhase.GetPotentialTriangleCollisions(universeQuery(), true, true, &triangles)
	if len(triangles) != 2 {
		t.Errorf("rebuilt broad phase holds %v triangles, want 2", triangles)
	}

	var edges []int
	s.BroadPhase.GetPotentialEdgeCollisions(universeQuery(), true, true, &edges)
	if len(edges) != 6 {
		t.Errorf("rebuilt broad phase holds %v edges, want 6", edges)
	}

	var vertices []int
	s.BroadPhase.GetPotentialVertexCollisions(universeQuery(), true, true, &vertices)
	if len(vertices) != 6 {
		t.Errorf("rebuilt broad phase holds %v vertices, want 6", vertices)
	}
}
