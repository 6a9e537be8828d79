// Package analytic implements kernel.Tessellator for analytic B-rep faces:
// planar polygons, cylinder patches and sphere patches.
//
// Planar faces are fan-triangulated and do not depend on the tolerances.
// Curved faces are sampled on a regular parameter grid whose resolution is
// the smallest one satisfying both the linear (chordal) and the angular
// deflection, so finer tolerances never produce fewer triangles.
package analytic

import (
	"math"

	"github.com/chazu/cadscene/pkg/cad"
	"github.com/chazu/cadscene/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Tessellator = (*Kernel)(nil)

// DefaultMaxSegments caps the number of segments along one curved parameter
// direction.
const DefaultMaxSegments = 1024

// segmentEpsilon absorbs rounding in the segment-count ceilings so that an
// exact multiple (e.g. a quarter turn at π/8) is not bumped up by one.
const segmentEpsilon = 1e-9

// Kernel is the analytic face tessellator.
type Kernel struct {
	maxSegments int
}

// New returns a Kernel with the default segment cap.
func New() *Kernel {
	return &Kernel{maxSegments: DefaultMaxSegments}
}

// NewWithMaxSegments returns a Kernel with a custom segment cap. Values
// below 3 fall back to DefaultMaxSegments.
func NewWithMaxSegments(n int) *Kernel {
	if n < 3 {
		n = DefaultMaxSegments
	}
	return &Kernel{maxSegments: n}
}

// TessellateFace implements kernel.Tessellator.
func (k *Kernel) TessellateFace(face *cad.Face, tol kernel.Deflection) (*kernel.FaceMesh, error) {
	if face == nil || face.Surface == nil {
		return nil, kernel.Unsupported(face)
	}
	switch s := face.Surface.(type) {
	case *cad.Planar:
		return planar(s)
	case *cad.Cylindrical:
		if !tol.Valid() {
			return nil, kernel.InvalidDeflection(s.Kind(), tol)
		}
		return k.cylinder(s, tol)
	case *cad.Spherical:
		if !tol.Valid() {
			return nil, kernel.InvalidDeflection(s.Kind(), tol)
		}
		return k.sphere(s, tol)
	default:
		return nil, kernel.Unsupported(face)
	}
}

// Segments returns the number of segments needed to approximate a circular
// arc of the given sweep and radius within tol, capped at maxSegments. A
// full revolution always gets at least 3 segments.
func Segments(sweep, radius float64, tol kernel.Deflection, maxSegments int) int {
	n := 1
	if a := int(math.Ceil(sweep/tol.Angular - segmentEpsilon)); a > n {
		n = a
	}
	// Largest angular step whose chord stays within the linear deflection:
	// sagitta r(1-cos(step/2)) <= linear.
	step := math.Pi
	if tol.Linear < radius {
		step = 2 * math.Acos(1-tol.Linear/radius)
	}
	if l := int(math.Ceil(sweep/step - segmentEpsilon)); l > n {
		n = l
	}
	if sweep >= cad.FullTurn-segmentEpsilon && n < 3 {
		n = 3
	}
	if maxSegments > 0 && n > maxSegments {
		n = maxSegments
	}
	return n
}

// ---------------------------------------------------------------------------
// Planar
// ---------------------------------------------------------------------------

func planar(p *cad.Planar) (*kernel.FaceMesh, error) {
	if len(p.Points) < 3 {
		return nil, kernel.Degenerate(cad.SurfacePlanar, "polygon has %d points, need at least 3", len(p.Points))
	}

	var n v3.Vec
	if p.Normal != nil {
		n = *p.Normal
	} else {
		n = newellNormal(p.Points)
	}
	if n.Length() < 1e-12 {
		return nil, kernel.Degenerate(cad.SurfacePlanar, "polygon has zero area")
	}
	n = n.Normalize()

	m := &kernel.FaceMesh{
		Vertices: make([]float32, 0, len(p.Points)*3),
		Normals:  make([]float32, 0, len(p.Points)*3),
		Indices:  make([]uint32, 0, (len(p.Points)-2)*3),
	}
	for _, pt := range p.Points {
		m.Vertices = appendVec(m.Vertices, pt)
		m.Normals = appendVec(m.Normals, n)
	}
	for i := 1; i+1 < len(p.Points); i++ {
		m.Indices = append(m.Indices, 0, uint32(i), uint32(i+1))
	}
	return m, nil
}

// newellNormal computes the (unnormalized) polygon normal with Newell's
// method, which tolerates slightly non-planar input.
func newellNormal(pts []v3.Vec) v3.Vec {
	var n v3.Vec
	for i, cur := range pts {
		next := pts[(i+1)%len(pts)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}

// ---------------------------------------------------------------------------
// Cylindrical
// ---------------------------------------------------------------------------

func (k *Kernel) cylinder(c *cad.Cylindrical, tol kernel.Deflection) (*kernel.FaceMesh, error) {
	if c.Radius <= 0 || c.Height <= 0 {
		return nil, kernel.Degenerate(cad.SurfaceCylindrical, "radius %g, height %g", c.Radius, c.Height)
	}
	if c.Axis.Length() < 1e-12 {
		return nil, kernel.Degenerate(cad.SurfaceCylindrical, "zero-length axis")
	}
	axis := c.Axis.Normalize()
	xDir, yDir := frame(axis, c.RefDir)

	sweep := c.SweepAngle()
	n := Segments(sweep, c.Radius, tol, k.maxSegments)
	up := axis.MulScalar(c.Height)

	m := &kernel.FaceMesh{
		Vertices: make([]float32, 0, (n+1)*2*3),
		Normals:  make([]float32, 0, (n+1)*2*3),
		Indices:  make([]uint32, 0, n*6),
	}
	for i := 0; i <= n; i++ {
		theta := c.StartAngle + sweep*float64(i)/float64(n)
		radial := xDir.MulScalar(math.Cos(theta)).Add(yDir.MulScalar(math.Sin(theta)))
		bottom := c.Origin.Add(radial.MulScalar(c.Radius))
		normal := radial
		if c.Reversed {
			normal = normal.MulScalar(-1)
		}
		m.Vertices = appendVec(m.Vertices, bottom)
		m.Vertices = appendVec(m.Vertices, bottom.Add(up))
		m.Normals = appendVec(m.Normals, normal)
		m.Normals = appendVec(m.Normals, normal)
	}
	for i := 0; i < n; i++ {
		b0, t0 := uint32(2*i), uint32(2*i+1)
		b1, t1 := uint32(2*i+2), uint32(2*i+3)
		m.Indices = appendQuad(m.Indices, b0, b1, t1, t0, c.Reversed)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Spherical
// ---------------------------------------------------------------------------

func (k *Kernel) sphere(s *cad.Spherical, tol kernel.Deflection) (*kernel.FaceMesh, error) {
	if s.Radius <= 0 {
		return nil, kernel.Degenerate(cad.SurfaceSpherical, "radius %g", s.Radius)
	}
	latMin, latMax := s.LatitudeRange()
	if latMin >= latMax || latMin < -math.Pi/2-segmentEpsilon || latMax > math.Pi/2+segmentEpsilon {
		return nil, kernel.Degenerate(cad.SurfaceSpherical, "latitude range [%g, %g]", latMin, latMax)
	}

	sweep := s.SweepAngle()
	latSpan := latMax - latMin
	nu := Segments(sweep, s.Radius, tol, k.maxSegments)
	nv := Segments(latSpan, s.Radius, tol, k.maxSegments)

	m := &kernel.FaceMesh{
		Vertices: make([]float32, 0, (nu+1)*(nv+1)*3),
		Normals:  make([]float32, 0, (nu+1)*(nv+1)*3),
		Indices:  make([]uint32, 0, nu*nv*6),
	}
	for j := 0; j <= nv; j++ {
		lat := latMin + latSpan*float64(j)/float64(nv)
		cosLat, sinLat := math.Cos(lat), math.Sin(lat)
		for i := 0; i <= nu; i++ {
			lon := s.LonStart + sweep*float64(i)/float64(nu)
			dir := v3.Vec{X: cosLat * math.Cos(lon), Y: cosLat * math.Sin(lon), Z: sinLat}
			normal := dir
			if s.Reversed {
				normal = normal.MulScalar(-1)
			}
			m.Vertices = appendVec(m.Vertices, s.Center.Add(dir.MulScalar(s.Radius)))
			m.Normals = appendVec(m.Normals, normal)
		}
	}
	row := uint32(nu + 1)
	for j := 0; j < nv; j++ {
		for i := 0; i < nu; i++ {
			a := uint32(j)*row + uint32(i)
			b := a + 1
			c := b + row
			d := a + row
			m.Indices = appendQuad(m.Indices, a, b, c, d, s.Reversed)
		}
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// frame returns two unit vectors perpendicular to axis, xDir as close to ref
// as possible.
func frame(axis, ref v3.Vec) (v3.Vec, v3.Vec) {
	x := ref.Sub(axis.MulScalar(ref.Dot(axis)))
	if x.Length() < 1e-9 {
		// Any vector not parallel to the axis will do.
		seed := v3.Vec{X: 1}
		if math.Abs(axis.X) > 0.9 {
			seed = v3.Vec{Y: 1}
		}
		x = seed.Sub(axis.MulScalar(seed.Dot(axis)))
	}
	x = x.Normalize()
	return x, axis.Cross(x)
}

// appendQuad emits quad a-b-c-d (counter-clockwise seen from the front) as
// two triangles, flipping the winding when reversed.
func appendQuad(idx []uint32, a, b, c, d uint32, reversed bool) []uint32 {
	if reversed {
		return append(idx, a, c, b, a, d, c)
	}
	return append(idx, a, b, c, a, c, d)
}

func appendVec(buf []float32, v v3.Vec) []float32 {
	return append(buf, float32(v.X), float32(v.Y), float32(v.Z))
}
