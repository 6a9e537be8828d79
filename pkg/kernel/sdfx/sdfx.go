// Package sdfx implements kernel.Tessellator for implicit faces using the
// github.com/deadsy/sdfx SDF library and uniform marching cubes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/cadscene/pkg/cad"
	"github.com/chazu/cadscene/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Tessellator = (*Kernel)(nil)

const (
	// DefaultMaxCells caps the marching cubes resolution along the longest
	// axis of a primitive.
	DefaultMaxCells = 128
	// MinCells is the coarsest resolution ever used.
	MinCells = 8
)

// Kernel meshes cad.Implicit faces.
type Kernel struct {
	maxCells int
}

// New returns a Kernel with DefaultMaxCells.
func New() *Kernel {
	return &Kernel{maxCells: DefaultMaxCells}
}

// NewWithMaxCells returns a Kernel with a custom resolution cap. Values
// below MinCells fall back to DefaultMaxCells.
func NewWithMaxCells(n int) *Kernel {
	if n < MinCells {
		n = DefaultMaxCells
	}
	return &Kernel{maxCells: n}
}

// Cells returns the marching cubes resolution for a primitive whose longest
// extent is extent, so that one cell is roughly one linear deflection wide.
func Cells(extent, linear float64, maxCells int) int {
	n := int(math.Ceil(extent / linear))
	if n < MinCells {
		n = MinCells
	}
	if n > maxCells {
		n = maxCells
	}
	return n
}

// TessellateFace implements kernel.Tessellator. Only implicit faces are
// handled; everything else reports kernel.ErrUnsupportedSurface.
func (k *Kernel) TessellateFace(face *cad.Face, tol kernel.Deflection) (*kernel.FaceMesh, error) {
	if face == nil {
		return nil, kernel.Unsupported(face)
	}
	im, ok := face.Surface.(*cad.Implicit)
	if !ok {
		return nil, kernel.Unsupported(face)
	}
	if !tol.Valid() {
		return nil, kernel.InvalidDeflection(cad.SurfaceImplicit, tol)
	}

	s, err := build(im)
	if err != nil {
		return nil, kernel.Degenerate(cad.SurfaceImplicit, "%s: %v", im.Primitive, err)
	}

	size := im.Bounds().Size()
	extent := math.Max(size.X, math.Max(size.Y, size.Z))
	renderer := render.NewMarchingCubesUniform(Cells(extent, tol.Linear, k.maxCells))
	triangles := render.ToTriangles(s, renderer)

	m := &kernel.FaceMesh{
		Vertices: make([]float32, 0, len(triangles)*9),
		Normals:  make([]float32, 0, len(triangles)*9),
		Indices:  make([]uint32, 0, len(triangles)*3),
	}
	for _, tri := range triangles {
		// Marching cubes emits slivers with no area; their normal is undefined.
		if tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).Length() < 1e-12 {
			continue
		}
		n := tri.Normal()
		base := uint32(m.VertexCount())
		for j := 0; j < 3; j++ {
			v := tri[j]
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
			m.Indices = append(m.Indices, base+uint32(j))
		}
	}
	if m.IsEmpty() {
		return nil, kernel.Degenerate(cad.SurfaceImplicit, "%s produced no triangles", im.Primitive)
	}
	return m, nil
}

// build returns the SDF for an implicit primitive, centered on im.Center.
func build(im *cad.Implicit) (sdf.SDF3, error) {
	var (
		s   sdf.SDF3
		err error
	)
	switch im.Primitive {
	case cad.ImplicitBox:
		s, err = sdf.Box3D(im.Size, im.Round)
	case cad.ImplicitCylinder:
		s, err = sdf.Cylinder3D(im.Height, im.Radius, im.Round)
	case cad.ImplicitSphere:
		s, err = sdf.Sphere3D(im.Radius)
	default:
		return nil, fmt.Errorf("unknown implicit primitive %d", int(im.Primitive))
	}
	if err != nil {
		return nil, err
	}
	if im.Center == (v3.Vec{}) {
		return s, nil
	}
	return sdf.Transform3D(s, sdf.Translate3d(im.Center)), nil
}
