package kernel

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/cadscene/pkg/cad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- FaceMesh helper method tests ---

func TestFaceMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &FaceMesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFaceMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &FaceMesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFaceMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &FaceMesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("vertices without triangles", func(t *testing.T) {
		m := &FaceMesh{Vertices: []float32{1, 2, 3}}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for mesh without indices, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &FaceMesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Indices: []uint32{0, 1, 2}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestFaceMeshValidate(t *testing.T) {
	tri := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	tests := []struct {
		name    string
		mesh    FaceMesh
		wantErr bool
	}{
		{"valid", FaceMesh{Vertices: tri, Indices: []uint32{0, 1, 2}}, false},
		{"valid with normals", FaceMesh{Vertices: tri, Normals: tri, Indices: []uint32{0, 1, 2}}, false},
		{"ragged vertices", FaceMesh{Vertices: tri[:4], Indices: []uint32{0}}, true},
		{"normal mismatch", FaceMesh{Vertices: tri, Normals: tri[:3], Indices: []uint32{0, 1, 2}}, true},
		{"ragged indices", FaceMesh{Vertices: tri, Indices: []uint32{0, 1}}, true},
		{"index out of range", FaceMesh{Vertices: tri, Indices: []uint32{0, 1, 3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeflectionValid(t *testing.T) {
	tests := []struct {
		name string
		tol  Deflection
		want bool
	}{
		{"positive", Deflection{Linear: 0.1, Angular: 0.5}, true},
		{"zero linear", Deflection{Linear: 0, Angular: 0.5}, false},
		{"negative angular", Deflection{Linear: 1, Angular: -1}, false},
		{"nan", Deflection{Linear: math.NaN(), Angular: 0.5}, false},
		{"inf", Deflection{Linear: math.Inf(1), Angular: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tol.Valid())
		})
	}
}

// --- Chain with stub tessellators ---

// stubTessellator handles exactly one surface kind and returns a fixed mesh.
type stubTessellator struct {
	kind  cad.SurfaceKind
	mesh  *FaceMesh
	err   error
	calls int
}

func (s *stubTessellator) TessellateFace(face *cad.Face, _ Deflection) (*FaceMesh, error) {
	s.calls++
	if face.Surface == nil || face.Surface.Kind() != s.kind {
		return nil, Unsupported(face)
	}
	return s.mesh, s.err
}

// Compile-time check that the stub implements the interface.
var _ Tessellator = (*stubTessellator)(nil)

func TestChainRoutesBySurface(t *testing.T) {
	planarMesh := &FaceMesh{Vertices: []float32{0, 0, 0}}
	sphereMesh := &FaceMesh{Vertices: []float32{1, 1, 1}}
	planar := &stubTessellator{kind: cad.SurfacePlanar, mesh: planarMesh}
	sphere := &stubTessellator{kind: cad.SurfaceSpherical, mesh: sphereMesh}
	chain := Chain{planar, sphere}
	tol := Deflection{Linear: 1, Angular: 0.5}

	got, err := chain.TessellateFace(&cad.Face{Surface: &cad.Spherical{Radius: 1}}, tol)
	require.NoError(t, err)
	assert.Same(t, sphereMesh, got)
	assert.Equal(t, 1, planar.calls)

	got, err = chain.TessellateFace(&cad.Face{Surface: &cad.Planar{}}, tol)
	require.NoError(t, err)
	assert.Same(t, planarMesh, got)
	assert.Equal(t, 1, sphere.calls)
}

func TestChainStopsOnRealError(t *testing.T) {
	boom := Degenerate(cad.SurfacePlanar, "collinear")
	first := &stubTessellator{kind: cad.SurfacePlanar, err: boom}
	second := &stubTessellator{kind: cad.SurfacePlanar, mesh: &FaceMesh{}}

	_, err := Chain{first, second}.TessellateFace(&cad.Face{Surface: &cad.Planar{}}, Deflection{Linear: 1, Angular: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateFace))
	assert.Equal(t, 0, second.calls)
}

func TestChainUnsupported(t *testing.T) {
	_, err := Chain{}.TessellateFace(&cad.Face{Surface: &cad.Implicit{}}, Deflection{Linear: 1, Angular: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedSurface))

	var te *TessellationError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, cad.SurfaceImplicit, te.Surface)
	assert.Equal(t, "tessellate implicit face: unsupported surface type", err.Error())
}
