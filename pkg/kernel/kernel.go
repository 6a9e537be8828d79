// Package kernel defines the abstract tessellation interface between the
// scene converter and a geometry kernel. Implementations (analytic, sdfx)
// triangulate one B-rep face at a time within given deflection tolerances.
// The abstraction allows swapping backends without changing the rest of the
// system.
package kernel

import (
	"errors"
	"math"

	"github.com/chazu/cadscene/pkg/cad"
)

// Deflection holds the tessellation tolerances.
type Deflection struct {
	// Linear is the maximum chordal deviation between a curved surface and
	// its triangles, in model units.
	Linear float64 `json:"linearDeflection"`
	// Angular is the maximum angle in radians between the normals of
	// adjacent triangles on a curved surface.
	Angular float64 `json:"angularDeflection"`
}

// Valid reports whether both tolerances are finite and strictly positive.
func (d Deflection) Valid() bool {
	return positive(d.Linear) && positive(d.Angular)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Tessellator triangulates a single face in shape-local coordinates.
// Implementations must be deterministic: the same face and tolerances always
// yield the same buffers.
type Tessellator interface {
	TessellateFace(face *cad.Face, tol Deflection) (*FaceMesh, error)
}

// Chain tries each tessellator in order and returns the first answer from
// one that supports the face's surface.
type Chain []Tessellator

// Compile-time interface check.
var _ Tessellator = Chain(nil)

// TessellateFace implements Tessellator.
func (c Chain) TessellateFace(face *cad.Face, tol Deflection) (*FaceMesh, error) {
	for _, t := range c {
		m, err := t.TessellateFace(face, tol)
		if errors.Is(err, ErrUnsupportedSurface) {
			continue
		}
		return m, err
	}
	return nil, Unsupported(face)
}
