package mantle

import (
	"math"

	"github.com/akmonengine/mantle/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultMaxCellsPerAxis bounds grid memory regardless of the scene extent
const DefaultMaxCellsPerAxis = 64

// CellKey - coordinates of a cell in the grid
type CellKey struct {
	X, Y, Z int
}

type gridElement struct {
	aabb   geom.AABB
	lo, hi CellKey
}

// AccelerationGrid - uniform spatial grid mapping element AABBs to the
// cells they touch. Elements whose AABB extends past the grid are
// clamped to the boundary cells, so every element is always registered.
type AccelerationGrid struct {
	origin   mgl64.Vec3
	cellSize float64
	dims     CellKey

	cells    [][]int
	elements map[int]*gridElement

	// MaxCellsPerAxis clamps the grid resolution chosen by Build
	MaxCellsPerAxis int

	querySeen  map[int]uint64
	queryStamp uint64
}

// NewAccelerationGrid - creates an empty one-cell grid
func NewAccelerationGrid() *AccelerationGrid {
	g := &AccelerationGrid{
		cellSize:        1.0,
		dims:            CellKey{1, 1, 1},
		elements:        make(map[int]*gridElement),
		MaxCellsPerAxis: DefaultMaxCellsPerAxis,
		querySeen:       make(map[int]uint64),
	}
	g.cells = make([][]int, 1)

	return g
}

// Build - sizes the grid to the union of the given AABBs and inserts
// every element. The cell edge is lengthScale (typically the mean
// primitive extent) times gridPadding, which must be >= 1.
func (g *AccelerationGrid) Build(indices []int, aabbs []geom.AABB, lengthScale, gridPadding float64) {
	g.elements = make(map[int]*gridElement)
	g.querySeen = make(map[int]uint64)
	g.queryStamp = 0

	if len(indices) == 0 {
		g.cellSize = math.Max(lengthScale*gridPadding, 1e-10)
		g.dims = CellKey{1, 1, 1}
		g.cells = make([][]int, 1)
		return
	}

	union := aabbs[0]
	for _, aabb := range aabbs[1:] {
		union = union.Union(aabb)
	}

	g.cellSize = math.Max(lengthScale*gridPadding, 1e-10)
	g.origin = union.Min.Sub(mgl64.Vec3{g.cellSize, g.cellSize, g.cellSize})

	for axis := 0; axis < 3; axis++ {
		n := int(math.Ceil((union.Max[axis]-g.origin[axis])/g.cellSize)) + 1
		n = max(1, min(n, g.MaxCellsPerAxis))
		switch axis {
		case 0:
			g.dims.X = n
		case 1:
			g.dims.Y = n
		case 2:
			g.dims.Z = n
		}
	}

	g.cells = make([][]int, g.dims.X*g.dims.Y*g.dims.Z)

	for k, i := range indices {
		g.AddElement(i, aabbs[k])
	}
}

// worldToCell - converts a world position to clamped cell coordinates
func (g *AccelerationGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: clampCell(int(math.Floor((pos.X()-g.origin.X())/g.cellSize)), g.dims.X),
		Y: clampCell(int(math.Floor((pos.Y()-g.origin.Y())/g.cellSize)), g.dims.Y),
		Z: clampCell(int(math.Floor((pos.Z()-g.origin.Z())/g.cellSize)), g.dims.Z),
	}
}

func clampCell(c, n int) int {
	return max(0, min(c, n-1))
}

func (g *AccelerationGrid) cellIndex(x, y, z int) int {
	return x + g.dims.X*(y+g.dims.Y*z)
}

// AddElement - registers an element in every cell its AABB touches.
// Re-adding a present index is silently ignored; callers use
// UpdateElement to move elements.
func (g *AccelerationGrid) AddElement(i int, aabb geom.AABB) {
	if _, exists := g.elements[i]; exists {
		return
	}

	lo := g.worldToCell(aabb.Min)
	hi := g.worldToCell(aabb.Max)
	g.elements[i] = &gridElement{aabb: aabb, lo: lo, hi: hi}

	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				idx := g.cellIndex(x, y, z)
				g.cells[idx] = append(g.cells[idx], i)
			}
		}
	}
}

// UpdateElement - refreshes an element's AABB. When the touched-cell
// range is unchanged only the cached AABB is rewritten; otherwise the
// element moves between exactly the cells in the symmetric difference.
func (g *AccelerationGrid) UpdateElement(i int, aabb geom.AABB) {
	element, exists := g.elements[i]
	if !exists {
		g.AddElement(i, aabb)
		return
	}

	lo := g.worldToCell(aabb.Min)
	hi := g.worldToCell(aabb.Max)

	if lo == element.lo && hi == element.hi {
		element.aabb = aabb
		return
	}

	oldLo, oldHi := element.lo, element.hi

	for x := oldLo.X; x <= oldHi.X; x++ {
		for y := oldLo.Y; y <= oldHi.Y; y++ {
			for z := oldLo.Z; z <= oldHi.Z; z++ {
				if inRange(x, y, z, lo, hi) {
					continue
				}
				idx := g.cellIndex(x, y, z)
				g.cells[idx] = removeFromCell(g.cells[idx], i)
			}
		}
	}

	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				if inRange(x, y, z, oldLo, oldHi) {
					continue
				}
				idx := g.cellIndex(x, y, z)
				g.cells[idx] = append(g.cells[idx], i)
			}
		}
	}

	element.aabb = aabb
	element.lo = lo
	element.hi = hi
}

func inRange(x, y, z int, lo, hi CellKey) bool {
	return x >= lo.X && x <= hi.X && y >= lo.Y && y <= hi.Y && z >= lo.Z && z <= hi.Z
}

func removeFromCell(occupants []int, i int) []int {
	for k, occupant := range occupants {
		if occupant == i {
			return append(occupants[:k], occupants[k+1:]...)
		}
	}

	return occupants
}

// RemoveElement - removes an element from every cell it occupies.
// Removing an absent index is a no-op.
func (g *AccelerationGrid) RemoveElement(i int) {
	element, exists := g.elements[i]
	if !exists {
		return
	}

	for x := element.lo.X; x <= element.hi.X; x++ {
		for y := element.lo.Y; y <= element.hi.Y; y++ {
			for z := element.lo.Z; z <= element.hi.Z; z++ {
				idx := g.cellIndex(x, y, z)
				g.cells[idx] = removeFromCell(g.cells[idx], i)
			}
		}
	}

	delete(g.elements, i)
	delete(g.querySeen, i)
}

// ElementAABB - returns the cached AABB of an element
func (g *AccelerationGrid) ElementAABB(i int) (geom.AABB, bool) {
	element, exists := g.elements[i]
	if !exists {
		return geom.AABB{}, false
	}

	return element.aabb, true
}

// Contains - reports whether the element is registered
func (g *AccelerationGrid) Contains(i int) bool {
	_, exists := g.elements[i]

	return exists
}

// FindOverlappingElements - appends to out every registered index whose
// cached AABB overlaps the query AABB. Each index appears at most once;
// the order is deterministic for a given grid state.
func (g *AccelerationGrid) FindOverlappingElements(query geom.AABB, out *[]int) {
	g.queryStamp++

	lo := g.worldToCell(query.Min)
	hi := g.worldToCell(query.Max)

	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for _, i := range g.cells[g.cellIndex(x, y, z)] {
					if g.querySeen[i] == g.queryStamp {
						continue
					}
					g.querySeen[i] = g.queryStamp

					if g.elements[i].aabb.Overlaps(query) {
						*out = append(*out, i)
					}
				}
			}
		}
	}
}
