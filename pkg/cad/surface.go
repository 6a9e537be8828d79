package cad

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SurfaceKind enumerates the surface types a face can carry.
type SurfaceKind int

const (
	SurfaceUnknown     SurfaceKind = iota
	SurfacePlanar                  // flat polygon
	SurfaceCylindrical             // cylinder patch
	SurfaceSpherical               // sphere patch
	SurfaceImplicit                // implicit primitive meshed by marching cubes
)

func (k SurfaceKind) String() string {
	switch k {
	case SurfacePlanar:
		return "planar"
	case SurfaceCylindrical:
		return "cylindrical"
	case SurfaceSpherical:
		return "spherical"
	case SurfaceImplicit:
		return "implicit"
	default:
		return "unknown"
	}
}

// Surface is the geometric carrier of a face, in shape-local coordinates.
type Surface interface {
	Kind() SurfaceKind
	// Bounds returns a conservative axis-aligned bounding box.
	Bounds() sdf.Box3
}

// FullTurn is one full revolution in radians.
const FullTurn = 2 * math.Pi

// ---------------------------------------------------------------------------
// Planar
// ---------------------------------------------------------------------------

// Planar is a convex planar polygon. Points are wound counter-clockwise when
// seen from the side the face normal points to.
type Planar struct {
	Points []v3.Vec
	Normal *v3.Vec // optional; computed from the winding when nil
}

func (*Planar) Kind() SurfaceKind { return SurfacePlanar }

func (p *Planar) Bounds() sdf.Box3 {
	return boundsOf(p.Points)
}

// ---------------------------------------------------------------------------
// Cylindrical
// ---------------------------------------------------------------------------

// Cylindrical is a patch of a cylinder around Axis through Origin. Angles are
// measured from RefDir in radians; a zero Sweep means a full revolution.
type Cylindrical struct {
	Origin     v3.Vec
	Axis       v3.Vec
	RefDir     v3.Vec
	Radius     float64
	Height     float64
	StartAngle float64
	Sweep      float64
	Reversed   bool // normals point toward the axis
}

func (*Cylindrical) Kind() SurfaceKind { return SurfaceCylindrical }

func (c *Cylindrical) Bounds() sdf.Box3 {
	r := v3.Vec{X: c.Radius, Y: c.Radius, Z: c.Radius}
	top := c.Origin.Add(unitOr(c.Axis, v3.Vec{Z: 1}).MulScalar(c.Height))
	a := sdf.Box3{Min: c.Origin.Sub(r), Max: c.Origin.Add(r)}
	b := sdf.Box3{Min: top.Sub(r), Max: top.Add(r)}
	return a.Extend(b)
}

// SweepAngle returns the effective sweep, mapping zero and out-of-range
// values to a full revolution.
func (c *Cylindrical) SweepAngle() float64 {
	return effectiveSweep(c.Sweep)
}

// ---------------------------------------------------------------------------
// Spherical
// ---------------------------------------------------------------------------

// Spherical is a latitude/longitude patch of a sphere with its pole along +Z.
// Latitudes are in [-π/2, π/2]; LatMin == LatMax == 0 selects the whole
// latitude range. A zero Sweep means a full revolution in longitude.
type Spherical struct {
	Center   v3.Vec
	Radius   float64
	LatMin   float64
	LatMax   float64
	LonStart float64
	Sweep    float64
	Reversed bool
}

func (*Spherical) Kind() SurfaceKind { return SurfaceSpherical }

func (s *Spherical) Bounds() sdf.Box3 {
	r := v3.Vec{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return sdf.Box3{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// LatitudeRange returns the effective latitude interval.
func (s *Spherical) LatitudeRange() (float64, float64) {
	if s.LatMin == 0 && s.LatMax == 0 {
		return -math.Pi / 2, math.Pi / 2
	}
	return s.LatMin, s.LatMax
}

// SweepAngle returns the effective longitude sweep.
func (s *Spherical) SweepAngle() float64 {
	return effectiveSweep(s.Sweep)
}

// ---------------------------------------------------------------------------
// Implicit
// ---------------------------------------------------------------------------

// ImplicitPrimitive selects the solid an Implicit face describes.
type ImplicitPrimitive int

const (
	ImplicitBox ImplicitPrimitive = iota
	ImplicitCylinder
	ImplicitSphere
)

func (p ImplicitPrimitive) String() string {
	switch p {
	case ImplicitBox:
		return "box"
	case ImplicitCylinder:
		return "cylinder"
	case ImplicitSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// Implicit is a whole closed primitive surface (optionally with rounded
// edges) centered at Center. Such faces are meshed as one unit.
type Implicit struct {
	Primitive ImplicitPrimitive
	Center    v3.Vec
	Size      v3.Vec  // box extents
	Radius    float64 // cylinder and sphere
	Height    float64 // cylinder, along Z
	Round     float64 // edge rounding radius
}

func (*Implicit) Kind() SurfaceKind { return SurfaceImplicit }

func (im *Implicit) Bounds() sdf.Box3 {
	var half v3.Vec
	switch im.Primitive {
	case ImplicitBox:
		half = im.Size.MulScalar(0.5)
	case ImplicitCylinder:
		half = v3.Vec{X: im.Radius, Y: im.Radius, Z: im.Height / 2}
	case ImplicitSphere:
		half = v3.Vec{X: im.Radius, Y: im.Radius, Z: im.Radius}
	}
	return sdf.Box3{Min: im.Center.Sub(half), Max: im.Center.Add(half)}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func effectiveSweep(sweep float64) float64 {
	if sweep <= 0 || sweep >= FullTurn {
		return FullTurn
	}
	return sweep
}

func unitOr(v, fallback v3.Vec) v3.Vec {
	if v.Length() == 0 {
		return fallback
	}
	return v.Normalize()
}

func boundsOf(points []v3.Vec) sdf.Box3 {
	if len(points) == 0 {
		return sdf.Box3{}
	}
	bb := sdf.Box3{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		bb = bb.Extend(sdf.Box3{Min: p, Max: p})
	}
	return bb
}
