package scene

import (
	"testing"

	"github.com/chazu/cadscene/pkg/cad"
	"github.com/chazu/cadscene/pkg/kernel"
	"github.com/chazu/cadscene/pkg/kernel/analytic"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTol = kernel.Deflection{Linear: 0.1, Angular: 0.5}

// countingTessellator wraps a tessellator and counts calls.
type countingTessellator struct {
	inner kernel.Tessellator
	calls int
}

func (c *countingTessellator) TessellateFace(face *cad.Face, tol kernel.Deflection) (*kernel.FaceMesh, error) {
	c.calls++
	return c.inner.TessellateFace(face, tol)
}

// bareTessellator returns one triangle without normals for every face.
type bareTessellator struct{}

func (bareTessellator) TessellateFace(*cad.Face, kernel.Deflection) (*kernel.FaceMesh, error) {
	return &kernel.FaceMesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Indices: []uint32{0, 1, 2}}, nil
}

// assertMeshInvariants checks the structural rules every mesh obeys.
func assertMeshInvariants(t *testing.T, m *Mesh) {
	t.Helper()
	require.Zero(t, len(m.Index)%3, "index length")
	require.Zero(t, len(m.Attributes.Position)%3, "position length")
	if m.Attributes.Normal != nil {
		require.Equal(t, len(m.Attributes.Position), len(m.Attributes.Normal))
	}
	n := uint32(m.VertexCount())
	for _, idx := range m.Index {
		require.Less(t, idx, n)
	}
	tris := uint32(m.TriangleCount())
	for i, r := range m.FaceColors {
		require.LessOrEqual(t, r.First, r.Last)
		require.Less(t, r.Last, tris)
		require.False(t, r.Color.Equal(m.Color), "range %d repeats the mesh color", i)
		if i > 0 {
			require.Greater(t, r.First, m.FaceColors[i-1].Last, "ranges overlap or are unsorted")
		}
	}
}

func TestBuildCube(t *testing.T) {
	b := NewMeshBuilder(analytic.New(), Options{})
	shape := cad.Box("cube", "Cube", 10, 10, 10)

	meshes, warnings := b.Build(&cad.Occurrence{Shape: "cube"}, shape, sdf.Identity3d(), nil, testTol)
	require.Len(t, meshes, 1)
	assert.Empty(t, warnings)

	m := meshes[0]
	assertMeshInvariants(t, m)
	assert.Equal(t, "Cube", m.Name)
	assert.Equal(t, DecodeColor(FallbackColor), m.Color)
	assert.Len(t, m.Index, 36)
	assert.Equal(t, 24, m.VertexCount())
	assert.Len(t, m.Attributes.Normal, 72)
	assert.Empty(t, m.FaceColors)

	// Face offsets: the second face's first triangle starts at vertex 4.
	assert.Equal(t, []uint32{4, 5, 6}, m.Index[6:9])
}

func TestBuildOccurrenceNameAndColor(t *testing.T) {
	b := NewMeshBuilder(analytic.New(), Options{})
	shape := cad.Box("cube", "Cube", 1, 1, 1)

	meshes, _ := b.Build(&cad.Occurrence{Shape: "cube", Name: "Left"}, shape, sdf.Identity3d(), cad.NewColor(0, 0, 1), testTol)
	require.Len(t, meshes, 1)
	assert.Equal(t, "Left", meshes[0].Name)
	assert.Equal(t, RGB{0, 0, 1}, meshes[0].Color)

	meshes, _ = b.Build(&cad.Occurrence{Shape: "cube", Color: cad.NewColor(1, 0, 0)}, shape, sdf.Identity3d(), cad.NewColor(0, 0, 1), testTol)
	assert.Equal(t, RGB{1, 0, 0}, meshes[0].Color)
}

func TestBuildFaceColorRanges(t *testing.T) {
	shape := cad.Box("cube", "Cube", 10, 10, 10)
	shape.Faces[0].Color = cad.NewColor(1, 0, 0)
	shape.Faces[3].Color = cad.NewColor(0, 0, 1)
	shape.Faces[5].Color = cad.NewColor(0, 2.0/3.0, 0)

	meshes, _ := NewMeshBuilder(analytic.New(), Options{}).Build(&cad.Occurrence{Shape: "cube"}, shape, sdf.Identity3d(), nil, testTol)
	require.Len(t, meshes, 1)
	m := meshes[0]
	assertMeshInvariants(t, m)

	assert.Equal(t, 0.6038273572921753, m.Color[0])
	assert.Equal(t, []FaceColorRange{
		{First: 0, Last: 1, Color: RGB{1, 0, 0}},
		{First: 6, Last: 7, Color: RGB{0, 0, 1}},
		{First: 10, Last: 11, Color: RGB{0, 0.4019778072834015, 0}},
	}, m.FaceColors)
}

func TestBuildMergesConsecutiveRuns(t *testing.T) {
	red := cad.NewColor(1, 0, 0)
	shape := cad.Box("cube", "Cube", 10, 10, 10)
	shape.Faces[1].Color = red
	shape.Faces[2].Color = red
	shape.Faces[3].Color = red
	shape.Faces[5].Color = red

	meshes, _ := NewMeshBuilder(analytic.New(), Options{}).Build(&cad.Occurrence{Shape: "cube"}, shape, sdf.Identity3d(), nil, testTol)
	m := meshes[0]
	assertMeshInvariants(t, m)
	assert.Equal(t, []FaceColorRange{
		{First: 2, Last: 7, Color: RGB{1, 0, 0}},
		{First: 10, Last: 11, Color: RGB{1, 0, 0}},
	}, m.FaceColors)
}

func TestBuildFaceColorEqualToBaseIsNotAnOverride(t *testing.T) {
	shape := cad.Box("cube", "Cube", 1, 1, 1)
	shape.Faces[2].Color = cad.NewColor(0.8, 0.8, 0.8)

	meshes, _ := NewMeshBuilder(analytic.New(), Options{}).Build(&cad.Occurrence{Shape: "cube"}, shape, sdf.Identity3d(), nil, testTol)
	assert.Empty(t, meshes[0].FaceColors)
}

func TestBuildSkipsFailedFaces(t *testing.T) {
	shape := cad.Box("cube", "Cube", 1, 1, 1)
	shape.Faces[1].Surface = &cad.Implicit{Primitive: cad.ImplicitSphere, Radius: 1}
	shape.Faces[4].Surface = &cad.Planar{Points: []v3.Vec{{}, {X: 1}}}
	shape.Faces[5].Color = cad.NewColor(1, 0, 0)

	meshes, warnings := NewMeshBuilder(analytic.New(), Options{}).Build(&cad.Occurrence{Shape: "cube"}, shape, sdf.Identity3d(), nil, testTol)
	require.Len(t, meshes, 1)
	require.Len(t, warnings, 2)
	assert.Equal(t, Warning{Kind: WarningTessellation, Shape: "cube", Face: 1, Message: "tessellate implicit face: unsupported surface type"}, warnings[0])
	assert.Equal(t, 4, warnings[1].Face)

	m := meshes[0]
	assertMeshInvariants(t, m)
	assert.Equal(t, 8, m.TriangleCount())
	// Face 5 is the fourth surviving face.
	assert.Equal(t, []FaceColorRange{{First: 6, Last: 7, Color: RGB{1, 0, 0}}}, m.FaceColors)
}

func TestBuildAllFacesFail(t *testing.T) {
	shape := &cad.Shape{ID: "blob", Name: "Blob", Faces: []cad.Face{
		{Surface: &cad.Implicit{Primitive: cad.ImplicitBox}},
		{Surface: &cad.Implicit{Primitive: cad.ImplicitBox}},
	}}
	meshes, warnings := NewMeshBuilder(analytic.New(), Options{}).Build(&cad.Occurrence{Shape: "blob"}, shape, sdf.Identity3d(), nil, testTol)
	assert.Empty(t, meshes)
	assert.Len(t, warnings, 2)

	meshes, warnings = NewMeshBuilder(analytic.New(), Options{}).Build(&cad.Occurrence{Shape: "empty"}, &cad.Shape{ID: "empty"}, sdf.Identity3d(), nil, testTol)
	assert.Empty(t, meshes)
	assert.Empty(t, warnings)
}

func TestBuildAppliesPlacement(t *testing.T) {
	shape := cad.Box("cube", "Cube", 1, 1, 1)
	xf := cad.Compose(sdf.Identity3d(), &cad.Placement{Translation: v3.Vec{X: 10}, Rotation: v3.Vec{Z: 90}})

	meshes, _ := NewMeshBuilder(analytic.New(), Options{}).Build(&cad.Occurrence{Shape: "cube"}, shape, xf, nil, testTol)
	m := meshes[0]
	for i := 0; i < m.VertexCount(); i++ {
		x, y := m.Attributes.Position[i*3], m.Attributes.Position[i*3+1]
		assert.InDelta(t, 9.5, x, 0.5+1e-5)
		assert.InDelta(t, 0.5, y, 0.5+1e-5)
	}
	// The +X face (index 3, triangles 6-7) now faces +Y.
	nx, ny := m.Attributes.Normal[4*3*3], m.Attributes.Normal[4*3*3+1]
	assert.InDelta(t, 0, nx, 1e-6)
	assert.InDelta(t, 1, ny, 1e-6)
}

func TestBuildDropsNormalsWhenAnyFaceLacksThem(t *testing.T) {
	shape := cad.Box("cube", "Cube", 1, 1, 1)
	chain := kernel.Chain{analytic.New()}
	meshes, _ := NewMeshBuilder(chain, Options{}).Build(&cad.Occurrence{}, shape, sdf.Identity3d(), nil, testTol)
	assert.NotNil(t, meshes[0].Attributes.Normal)

	meshes, _ = NewMeshBuilder(bareTessellator{}, Options{}).Build(&cad.Occurrence{}, shape, sdf.Identity3d(), nil, testTol)
	assert.Nil(t, meshes[0].Attributes.Normal)
	assert.Equal(t, 6, meshes[0].TriangleCount())
}

func TestBuildSplitsAtMaxVertices(t *testing.T) {
	shape := cad.Box("cube", "Cube", 1, 1, 1)
	shape.Faces[4].Color = cad.NewColor(1, 0, 0)

	meshes, _ := NewMeshBuilder(analytic.New(), Options{MaxVertices: 10}).Build(&cad.Occurrence{Shape: "cube"}, shape, sdf.Identity3d(), nil, testTol)
	require.Len(t, meshes, 3)
	for _, m := range meshes {
		assertMeshInvariants(t, m)
		assert.Equal(t, "Cube", m.Name)
		assert.Equal(t, 8, m.VertexCount())
	}
	assert.Empty(t, meshes[0].FaceColors)
	assert.Equal(t, []FaceColorRange{{First: 0, Last: 1, Color: RGB{1, 0, 0}}}, meshes[2].FaceColors)

	// A single face larger than the limit still gets a mesh.
	meshes, _ = NewMeshBuilder(analytic.New(), Options{MaxVertices: 2}).Build(&cad.Occurrence{Shape: "cube"}, shape, sdf.Identity3d(), nil, testTol)
	assert.Len(t, meshes, 6)
}

func TestBuildReuseShapeTessellation(t *testing.T) {
	shape := cad.Box("cube", "Cube", 1, 1, 1)
	shape.Faces[0].Surface = &cad.Implicit{}

	plain := &countingTessellator{inner: analytic.New()}
	memo := &countingTessellator{inner: analytic.New()}
	bPlain := NewMeshBuilder(plain, Options{})
	bMemo := NewMeshBuilder(memo, Options{ReuseShapeTessellation: true})

	for i := 0; i < 3; i++ {
		occ := &cad.Occurrence{Shape: "cube", Color: cad.NewColor(float64(i)/3, 0, 0)}
		m1, w1 := bPlain.Build(occ, shape, sdf.Identity3d(), nil, testTol)
		m2, w2 := bMemo.Build(occ, shape, sdf.Identity3d(), nil, testTol)
		assert.Equal(t, m1, m2)
		assert.Equal(t, w1, w2)
		require.Len(t, w2, 1)
	}
	assert.Equal(t, 18, plain.calls)
	assert.Equal(t, 6, memo.calls)
}
