package cad

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Placement is a rigid transform: rotate by Euler angles (degrees, applied
// about X, then Y, then Z), then translate.
type Placement struct {
	Translation v3.Vec
	Rotation    v3.Vec
}

// Translate returns a translation-only placement.
func Translate(x, y, z float64) *Placement {
	return &Placement{Translation: v3.Vec{X: x, Y: y, Z: z}}
}

// Matrix returns the placement as a 4x4 matrix. A nil placement is identity.
func (p *Placement) Matrix() sdf.M44 {
	if p == nil {
		return sdf.Identity3d()
	}
	m := sdf.Identity3d()
	rot := p.Rotation
	if rot.X != 0 || rot.Y != 0 || rot.Z != 0 {
		m = sdf.RotateZ(radians(rot.Z)).Mul(sdf.RotateY(radians(rot.Y))).Mul(sdf.RotateX(radians(rot.X)))
	}
	t := p.Translation
	if t.X != 0 || t.Y != 0 || t.Z != 0 {
		m = sdf.Translate3d(t).Mul(m)
	}
	return m
}

// Compose returns parent * p, the transform of a child placed by p inside a
// parent frame.
func Compose(parent sdf.M44, p *Placement) sdf.M44 {
	if p == nil {
		return parent
	}
	return parent.Mul(p.Matrix())
}

// TransformNormal applies the rotational part of m to a direction and
// renormalizes it. Zero-length results are returned unchanged.
func TransformNormal(m sdf.M44, n v3.Vec) v3.Vec {
	d := m.MulPosition(n).Sub(m.MulPosition(v3.Vec{}))
	if d.Length() == 0 {
		return d
	}
	return d.Normalize()
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
