package kernel

import "fmt"

// FaceMesh is the triangulation of one face.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex or is empty, indices has 3 uint32s per
// triangle and refers to this face's own vertices.
type FaceMesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *FaceMesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *FaceMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no triangles.
func (m *FaceMesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}

// HasNormals reports whether every vertex carries a normal.
func (m *FaceMesh) HasNormals() bool {
	return len(m.Normals) == len(m.Vertices) && len(m.Normals) > 0
}

// Validate checks buffer shapes and index bounds.
func (m *FaceMesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("vertex buffer length %d is not a multiple of 3", len(m.Vertices))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("normal buffer length %d does not match vertex buffer length %d", len(m.Normals), len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index buffer length %d is not a multiple of 3", len(m.Indices))
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("index %d at position %d out of range (%d vertices)", idx, i, n)
		}
	}
	return nil
}
