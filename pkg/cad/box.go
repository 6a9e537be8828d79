package cad

import v3 "github.com/deadsy/sdfx/vec/v3"

// Box face indices, in the order Box emits them.
const (
	BoxBottom = iota // -Z
	BoxTop           // +Z
	BoxFront         // -Y
	BoxRight         // +X
	BoxBack          // +Y
	BoxLeft          // -X
)

// Box returns a six-face planar box shape with its minimum corner at the
// origin, so that a placement translation positions the corner.
func Box(id ShapeID, name string, x, y, z float64) *Shape {
	p := func(px, py, pz float64) v3.Vec { return v3.Vec{X: px, Y: py, Z: pz} }
	quads := [6][4]v3.Vec{
		BoxBottom: {p(0, 0, 0), p(0, y, 0), p(x, y, 0), p(x, 0, 0)},
		BoxTop:    {p(0, 0, z), p(x, 0, z), p(x, y, z), p(0, y, z)},
		BoxFront:  {p(0, 0, 0), p(x, 0, 0), p(x, 0, z), p(0, 0, z)},
		BoxRight:  {p(x, 0, 0), p(x, y, 0), p(x, y, z), p(x, 0, z)},
		BoxBack:   {p(0, y, 0), p(0, y, z), p(x, y, z), p(x, y, 0)},
		BoxLeft:   {p(0, 0, 0), p(0, 0, z), p(0, y, z), p(0, y, 0)},
	}
	s := &Shape{ID: id, Name: name, Faces: make([]Face, 0, len(quads))}
	for _, q := range quads {
		s.Faces = append(s.Faces, Face{Surface: &Planar{Points: q[:]}})
	}
	return s
}
