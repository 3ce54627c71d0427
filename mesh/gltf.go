package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTF reads a glTF (or glb) file and builds a triangle mesh from
// every triangle primitive it contains, along with the vertex positions.
func LoadGLTF(path string) (*TriMesh, []mgl64.Vec3, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return FromGLTFDocument(doc)
}

// FromGLTFDocument builds a triangle mesh from an already-decoded glTF
// document. Primitives without a POSITION attribute or without indices
// are skipped.
func FromGLTFDocument(doc *gltf.Document) (*TriMesh, []mgl64.Vec3, error) {
	m := New()
	var positions []mgl64.Vec3

	for meshIdx, gltfMesh := range doc.Meshes {
		for primIdx, prim := range gltfMesh.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}

			posAccessor, ok := prim.Attributes[gltf.POSITION]
			if !ok || prim.Indices == nil {
				continue
			}

			verts, err := modeler.ReadPosition(doc, doc.Accessors[posAccessor], nil)
			if err != nil {
				return nil, nil, fmt.Errorf("mesh %d primitive %d positions: %w", meshIdx, primIdx, err)
			}

			indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, nil, fmt.Errorf("mesh %d primitive %d indices: %w", meshIdx, primIdx, err)
			}

			base := m.NumVertices()
			for _, v := range verts {
				m.AddVertex()
				positions = append(positions, mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])})
			}

			for i := 0; i+2 < len(indices); i += 3 {
				tri := [3]int{
					base + int(indices[i]),
					base + int(indices[i+1]),
					base + int(indices[i+2]),
				}
				if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
					continue
				}
				m.AddTriangle(tri)
			}
		}
	}

	return m, positions, nil
}
