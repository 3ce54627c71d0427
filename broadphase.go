package mantle

import (
	"github.com/akmonengine/mantle/geom"
)

// broadPhaseGridPadding scales the cell edge chosen at rebuild time
const broadPhaseGridPadding = 1.1

// BroadPhase answers conservative overlap queries against the mesh
// primitives, partitioned into solid and dynamic populations. It is a
// capability set rather than a base type, so alternative backends (BVH,
// hashed grid) can be swapped in.
type BroadPhase interface {
	// UpdateBroadPhase discards and rebuilds all stored entries from
	// the surface, using continuous bounds when continuous is set.
	UpdateBroadPhase(surface *Surface, continuous bool)

	AddVertex(i int, aabb geom.AABB, isSolid bool)
	AddEdge(i int, aabb geom.AABB, isSolid bool)
	AddTriangle(i int, aabb geom.AABB, isSolid bool)

	UpdateVertex(i int, aabb geom.AABB, isSolid bool)
	UpdateEdge(i int, aabb geom.AABB, isSolid bool)
	UpdateTriangle(i int, aabb geom.AABB, isSolid bool)

	RemoveVertex(i int)
	RemoveEdge(i int)
	RemoveTriangle(i int)

	VertexAABB(i int, isSolid bool) (geom.AABB, bool)
	EdgeAABB(i int, isSolid bool) (geom.AABB, bool)
	TriangleAABB(i int, isSolid bool) (geom.AABB, bool)

	GetPotentialVertexCollisions(query geom.AABB, returnSolid, returnDynamic bool, out *[]int)
	GetPotentialEdgeCollisions(query geom.AABB, returnSolid, returnDynamic bool, out *[]int)
	GetPotentialTriangleCollisions(query geom.AABB, returnSolid, returnDynamic bool, out *[]int)
}

// GridBroadPhase - broad phase over six acceleration grids, one per
// (primitive kind, solid flag) pair
type GridBroadPhase struct {
	solidVertexGrid   *AccelerationGrid
	solidEdgeGrid     *AccelerationGrid
	solidTriangleGrid *AccelerationGrid

	dynamicVertexGrid   *AccelerationGrid
	dynamicEdgeGrid     *AccelerationGrid
	dynamicTriangleGrid *AccelerationGrid
}

// NewGridBroadPhase creates an empty grid broad phase
func NewGridBroadPhase() *GridBroadPhase {
	return &GridBroadPhase{
		solidVertexGrid:     NewAccelerationGrid(),
		solidEdgeGrid:       NewAccelerationGrid(),
		solidTriangleGrid:   NewAccelerationGrid(),
		dynamicVertexGrid:   NewAccelerationGrid(),
		dynamicEdgeGrid:     NewAccelerationGrid(),
		dynamicTriangleGrid: NewAccelerationGrid(),
	}
}

// UpdateBroadPhase rebuilds all six grids from the surface. The cell
// size follows the surface's mean edge length so occupancy stays near
// one primitive per cell.
func (bp *GridBroadPhase) UpdateBroadPhase(surface *Surface, continuous bool) {
	lengthScale := surface.MeanEdgeLength()
	if lengthScale <= 0 {
		lengthScale = 1
	}

	var solidIndices, dynamicIndices []int
	var solidAABBs, dynamicAABBs []geom.AABB

	split := func(i int, aabb geom.AABB, isSolid bool) {
		if isSolid {
			solidIndices = append(solidIndices, i)
			solidAABBs = append(solidAABBs, aabb)
		} else {
			dynamicIndices = append(dynamicIndices, i)
			dynamicAABBs = append(dynamicAABBs, aabb)
		}
	}

	reset := func() {
		solidIndices, dynamicIndices = solidIndices[:0], dynamicIndices[:0]
		solidAABBs, dynamicAABBs = solidAABBs[:0], dynamicAABBs[:0]
	}

	for i := 0; i < surface.Mesh.NumVertices(); i++ {
		split(i, surface.VertexBounds(i, continuous), surface.VertexIsSolid(i))
	}
	bp.solidVertexGrid.Build(solidIndices, solidAABBs, lengthScale, broadPhaseGridPadding)
	bp.dynamicVertexGrid.Build(dynamicIndices, dynamicAABBs, lengthScale, broadPhaseGridPadding)

	reset()
	for i := 0; i < surface.Mesh.NumEdges(); i++ {
		if surface.Mesh.EdgeIsDeleted(i) {
			continue
		}
		split(i, surface.EdgeBounds(i, continuous), surface.EdgeIsSolid(i))
	}
	bp.solidEdgeGrid.Build(solidIndices, solidAABBs, lengthScale, broadPhaseGridPadding)
	bp.dynamicEdgeGrid.Build(dynamicIndices, dynamicAABBs, lengthScale, broadPhaseGridPadding)

	reset()
	for i := 0; i < surface.Mesh.NumTriangles(); i++ {
		if surface.Mesh.TriangleIsDeleted(i) {
			continue
		}
		split(i, surface.TriangleBounds(i, continuous), surface.TriangleIsSolid(i))
	}
	bp.solidTriangleGrid.Build(solidIndices, solidAABBs, lengthScale, broadPhaseGridPadding)
	bp.dynamicTriangleGrid.Build(dynamicIndices, dynamicAABBs, lengthScale, broadPhaseGridPadding)
}

func pick(solid, dynamic *AccelerationGrid, isSolid bool) *AccelerationGrid {
	if isSolid {
		return solid
	}

	return dynamic
}

// AddVertex adds a vertex to the grid selected by the solid flag
func (bp *GridBroadPhase) AddVertex(i int, aabb geom.AABB, isSolid bool) {
	pick(bp.solidVertexGrid, bp.dynamicVertexGrid, isSolid).AddElement(i, aabb)
}

// AddEdge adds an edge to the grid selected by the solid flag
func (bp *GridBroadPhase) AddEdge(i int, aabb geom.AABB, isSolid bool) {
	pick(bp.solidEdgeGrid, bp.dynamicEdgeGrid, isSolid).AddElement(i, aabb)
}

// AddTriangle adds a triangle to the grid selected by the solid flag
func (bp *GridBroadPhase) AddTriangle(i int, aabb geom.AABB, isSolid bool) {
	pick(bp.solidTriangleGrid, bp.dynamicTriangleGrid, isSolid).AddElement(i, aabb)
}

// UpdateVertex moves a vertex entry. The opposite-flag grid is purged
// first so a solid flag toggle can never strand a stale entry.
func (bp *GridBroadPhase) UpdateVertex(i int, aabb geom.AABB, isSolid bool) {
	pick(bp.dynamicVertexGrid, bp.solidVertexGrid, isSolid).RemoveElement(i)
	pick(bp.solidVertexGrid, bp.dynamicVertexGrid, isSolid).UpdateElement(i, aabb)
}

// UpdateEdge moves an edge entry, purging the opposite-flag grid
func (bp *GridBroadPhase) UpdateEdge(i int, aabb geom.AABB, isSolid bool) {
	pick(bp.dynamicEdgeGrid, bp.solidEdgeGrid, isSolid).RemoveElement(i)
	pick(bp.solidEdgeGrid, bp.dynamicEdgeGrid, isSolid).UpdateElement(i, aabb)
}

// UpdateTriangle moves a triangle entry, purging the opposite-flag grid
func (bp *GridBroadPhase) UpdateTriangle(i int, aabb geom.AABB, isSolid bool) {
	pick(bp.dynamicTriangleGrid, bp.solidTriangleGrid, isSolid).RemoveElement(i)
	pick(bp.solidTriangleGrid, bp.dynamicTriangleGrid, isSolid).UpdateElement(i, aabb)
}

// RemoveVertex removes a vertex from both grids of its kind
func (bp *GridBroadPhase) RemoveVertex(i int) {
	bp.solidVertexGrid.RemoveElement(i)
	bp.dynamicVertexGrid.RemoveElement(i)
}

// RemoveEdge removes an edge from both grids of its kind
func (bp *GridBroadPhase) RemoveEdge(i int) {
	bp.solidEdgeGrid.RemoveElement(i)
	bp.dynamicEdgeGrid.RemoveElement(i)
}

// RemoveTriangle removes a triangle from both grids of its kind
func (bp *GridBroadPhase) RemoveTriangle(i int) {
	bp.solidTriangleGrid.RemoveElement(i)
	bp.dynamicTriangleGrid.RemoveElement(i)
}

// VertexAABB returns the cached AABB of a vertex
func (bp *GridBroadPhase) VertexAABB(i int, isSolid bool) (geom.AABB, bool) {
	return pick(bp.solidVertexGrid, bp.dynamicVertexGrid, isSolid).ElementAABB(i)
}

// EdgeAABB returns the cached AABB of an edge
func (bp *GridBroadPhase) EdgeAABB(i int, isSolid bool) (geom.AABB, bool) {
	return pick(bp.solidEdgeGrid, bp.dynamicEdgeGrid, isSolid).ElementAABB(i)
}

// TriangleAABB returns the cached AABB of a triangle
func (bp *GridBroadPhase) TriangleAABB(i int, isSolid bool) (geom.AABB, bool) {
	return pick(bp.solidTriangleGrid, bp.dynamicTriangleGrid, isSolid).ElementAABB(i)
}

// GetPotentialVertexCollisions appends the vertices whose stored AABB
// overlaps the query, from the grids selected by the flags. No
// deduplication is needed: an index lives in exactly one of the two.
func (bp *GridBroadPhase) GetPotentialVertexCollisions(query geom.AABB, returnSolid, returnDynamic bool, out *[]int) {
	if returnSolid {
		bp.solidVertexGrid.FindOverlappingElements(query, out)
	}
	if returnDynamic {
		bp.dynamicVertexGrid.FindOverlappingElements(query, out)
	}
}

// GetPotentialEdgeCollisions appends the edges whose stored AABB
// overlaps the query, from the grids selected by the flags
func (bp *GridBroadPhase) GetPotentialEdgeCollisions(query geom.AABB, returnSolid, returnDynamic bool, out *[]int) {
	if returnSolid {
		bp.solidEdgeGrid.FindOverlappingElements(query, out)
	}
	if returnDynamic {
		bp.dynamicEdgeGrid.FindOverlappingElements(query, out)
	}
}

// GetPotentialTriangleCollisions appends the triangles whose stored
// AABB overlaps the query, from the grids selected by the flags
func (bp *GridBroadPhase) GetPotentialTriangleCollisions(query geom.AABB, returnSolid, returnDynamic bool, out *[]int) {
	if returnSolid {
		bp.solidTriangleGrid.FindOverlappingElements(query, out)
	}
	if returnDynamic {
		bp.dynamicTriangleGrid.FindOverlappingElements(query, out)
	}
}
