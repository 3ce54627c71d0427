package mesh

// TriMesh is a triangle mesh with stable indices and incrementally
// maintained adjacency tables. Removing a triangle leaves a tombstoned
// slot (all three vertices equal) rather than compacting the arrays, so
// indices held by callers stay valid. Edges are tombstoned the same way
// (both vertices equal) once no triangle is incident to them.
type TriMesh struct {
	Triangles [][3]int
	Edges     [][2]int

	// Per-vertex incident triangles and edges, per-triangle edges,
	// per-edge incident triangles.
	VertexToTriangleMap [][]int
	VertexToEdgeMap     [][]int
	TriangleToEdgeMap   [][3]int
	EdgeToTriangleMap   [][]int

	edgeLookup  map[[2]int]int
	numVertices int
}

// New creates an empty mesh
func New() *TriMesh {
	return &TriMesh{
		edgeLookup: make(map[[2]int]int),
	}
}

// NumVertices returns the number of vertex slots, including isolated ones
func (m *TriMesh) NumVertices() int {
	return m.numVertices
}

// NumTriangles returns the number of triangle slots, including deleted ones
func (m *TriMesh) NumTriangles() int {
	return len(m.Triangles)
}

// NumEdges returns the number of edge slots, including deleted ones
func (m *TriMesh) NumEdges() int {
	return len(m.Edges)
}

// Triangle returns the vertex triple of the given triangle slot
func (m *TriMesh) Triangle(t int) [3]int {
	return m.Triangles[t]
}

// Edge returns the vertex pair of the given edge slot
func (m *TriMesh) Edge(e int) [2]int {
	return m.Edges[e]
}

// TriangleIsDeleted reports whether the triangle slot is a tombstone
func (m *TriMesh) TriangleIsDeleted(t int) bool {
	tri := m.Triangles[t]

	return tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0]
}

// EdgeIsDeleted reports whether the edge slot is a tombstone
func (m *TriMesh) EdgeIsDeleted(e int) bool {
	return m.Edges[e][0] == m.Edges[e][1]
}

// AddVertex allocates a new vertex slot and returns its index
func (m *TriMesh) AddVertex() int {
	v := m.numVertices
	m.numVertices++
	m.VertexToTriangleMap = append(m.VertexToTriangleMap, nil)
	m.VertexToEdgeMap = append(m.VertexToEdgeMap, nil)

	return v
}

// RemoveVertex clears the adjacency of a vertex. The slot itself is
// reclaimed only when the vertex is the last one, so indices of other
// vertices never move. Triangles and edges still referencing the vertex
// are not checked or removed.
func (m *TriMesh) RemoveVertex(v int) {
	m.VertexToTriangleMap[v] = nil
	m.VertexToEdgeMap[v] = nil

	if v == m.numVertices-1 {
		m.numVertices--
		m.VertexToTriangleMap = m.VertexToTriangleMap[:v]
		m.VertexToEdgeMap = m.VertexToEdgeMap[:v]
	}
}

func normalizeEdge(v0, v1 int) [2]int {
	if v1 < v0 {
		v0, v1 = v1, v0
	}

	return [2]int{v0, v1}
}

// EdgeIndex returns the index of the edge joining the two vertices,
// or -1 if no such edge exists
func (m *TriMesh) EdgeIndex(v0, v1 int) int {
	if e, ok := m.edgeLookup[normalizeEdge(v0, v1)]; ok {
		return e
	}

	return -1
}

// TriangleIndex returns the index of the live triangle with the given
// vertex set, in any winding, or -1 if no such triangle exists
func (m *TriMesh) TriangleIndex(v0, v1, v2 int) int {
	for _, t := range m.VertexToTriangleMap[v0] {
		tri := m.Triangles[t]
		if containsVertex(tri, v1) && containsVertex(tri, v2) {
			return t
		}
	}

	return -1
}

func containsVertex(tri [3]int, v int) bool {
	return tri[0] == v || tri[1] == v || tri[2] == v
}

// TrianglesAreAdjacent reports whether the two triangles share an edge
func (m *TriMesh) TrianglesAreAdjacent(t0, t1 int) bool {
	e0 := m.TriangleToEdgeMap[t0]
	e1 := m.TriangleToEdgeMap[t1]

	for _, a := range e0 {
		for _, b := range e1 {
			if a == b {
				return true
			}
		}
	}

	return false
}

func (m *TriMesh) addOrGetEdge(v0, v1 int) int {
	key := normalizeEdge(v0, v1)
	if e, ok := m.edgeLookup[key]; ok {
		return e
	}

	e := len(m.Edges)
	m.Edges = append(m.Edges, key)
	m.EdgeToTriangleMap = append(m.EdgeToTriangleMap, nil)
	m.edgeLookup[key] = e
	m.VertexToEdgeMap[v0] = append(m.VertexToEdgeMap[v0], e)
	m.VertexToEdgeMap[v1] = append(m.VertexToEdgeMap[v1], e)

	return e
}

// AddTriangle appends a triangle and updates all adjacency tables.
// Returns the new triangle index.
func (m *TriMesh) AddTriangle(tri [3]int) int {
	t := len(m.Triangles)
	m.Triangles = append(m.Triangles, tri)

	var triEdges [3]int
	triEdges[0] = m.addOrGetEdge(tri[0], tri[1])
	triEdges[1] = m.addOrGetEdge(tri[1], tri[2])
	triEdges[2] = m.addOrGetEdge(tri[2], tri[0])
	m.TriangleToEdgeMap = append(m.TriangleToEdgeMap, triEdges)

	for _, e := range triEdges {
		m.EdgeToTriangleMap[e] = append(m.EdgeToTriangleMap[e], t)
	}
	for _, v := range tri {
		m.VertexToTriangleMap[v] = append(m.VertexToTriangleMap[v], t)
	}

	return t
}

func removeFromList(list []int, value int) []int {
	for i, x := range list {
		if x == value {
			return append(list[:i], list[i+1:]...)
		}
	}

	return list
}

// RemoveTriangle tombstones a triangle slot and updates all adjacency
// tables. Edges left with no incident triangle are tombstoned as well.
func (m *TriMesh) RemoveTriangle(t int) {
	tri := m.Triangles[t]

	for _, v := range tri {
		m.VertexToTriangleMap[v] = removeFromList(m.VertexToTriangleMap[v], t)
	}

	for _, e := range m.TriangleToEdgeMap[t] {
		m.EdgeToTriangleMap[e] = removeFromList(m.EdgeToTriangleMap[e], t)

		if len(m.EdgeToTriangleMap[e]) == 0 {
			edge := m.Edges[e]
			delete(m.edgeLookup, edge)
			m.VertexToEdgeMap[edge[0]] = removeFromList(m.VertexToEdgeMap[edge[0]], e)
			m.VertexToEdgeMap[edge[1]] = removeFromList(m.VertexToEdgeMap[edge[1]], e)
			m.Edges[e] = [2]int{0, 0}
		}
	}

	m.Triangles[t] = [3]int{0, 0, 0}
	m.TriangleToEdgeMap[t] = [3]int{0, 0, 0}
}
