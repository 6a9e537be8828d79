// Package yamlasm loads assembly documents written in YAML.
//
// A document lists shapes, product nodes and roots:
//
//	name: bracket
//	shapes:
//	  - id: plate
//	    box: {size: [200, 200, 10], face_colors: {top: [1, 0, 0]}}
//	  - id: rod
//	    faces:
//	      - cylinder: {axis: [0, 0, 1], radius: 5, height: 100}
//	nodes:
//	  - id: as1
//	    occurrences:
//	      - {shape: plate}
//	    children:
//	      - {node: rod-assembly, at: [100, 100, 10], rotate: [0, 0, 90]}
//	roots: [as1]
//
// Angles are in degrees. When roots is omitted, every node that no other
// node references becomes a root.
package yamlasm

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/chazu/cadscene/pkg/cad"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/yaml.v3"
)

// FormatName is reported in load errors.
const FormatName = "yaml"

var lineRe = regexp.MustCompile(`line (\d+)`)

var boxFaceNames = map[string]int{
	"bottom": cad.BoxBottom,
	"top":    cad.BoxTop,
	"front":  cad.BoxFront,
	"right":  cad.BoxRight,
	"back":   cad.BoxBack,
	"left":   cad.BoxLeft,
}

var implicitPrimitives = map[string]cad.ImplicitPrimitive{
	"box":      cad.ImplicitBox,
	"cylinder": cad.ImplicitCylinder,
	"sphere":   cad.ImplicitSphere,
}

// Loader parses YAML assembly documents. The zero value is ready to use.
type Loader struct{}

// New returns a Loader.
func New() *Loader {
	return &Loader{}
}

// LoadFile reads and parses the file at path. The document name defaults to
// the file's base name.
func (l *Loader) LoadFile(path string) (*cad.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &cad.LoadError{Format: FormatName, Err: err}
	}
	doc, err := l.Load(data)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Load parses a YAML document. All failures are *cad.LoadError.
func (l *Loader) Load(data []byte) (*cad.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &cad.LoadError{Format: FormatName, Err: cad.ErrEmptyInput}
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, loadError(0, err)
	}

	doc := cad.New(f.Name)
	for i := range f.Shapes {
		s := &f.Shapes[i]
		if s.ID == "" {
			return nil, loadError(s.line, errors.New("shape has no id"))
		}
		if doc.Shape(cad.ShapeID(s.ID)) != nil {
			return nil, loadError(s.line, fmt.Errorf("duplicate shape id %q", s.ID))
		}
		shape, err := buildShape(s)
		if err != nil {
			line := s.line
			var le *lineError
			if errors.As(err, &le) {
				line = le.line
			}
			return nil, loadError(line, fmt.Errorf("shape %q: %w", s.ID, err))
		}
		doc.AddShape(shape)
	}

	for i := range f.Nodes {
		n := &f.Nodes[i]
		id := n.ID
		if id == "" {
			id = n.Name
		}
		if id == "" {
			return nil, loadError(n.line, errors.New("node has neither id nor name"))
		}
		if doc.Node(cad.NodeID(id)) != nil {
			return nil, loadError(n.line, fmt.Errorf("duplicate node id %q", id))
		}
		doc.AddNode(buildNode(id, n))
	}

	if len(f.Roots) == 0 {
		for _, id := range doc.FreeNodes() {
			doc.AddRoot(id)
		}
	}
	for _, r := range f.Roots {
		doc.AddRoot(cad.NodeID(r))
	}
	return doc, nil
}

// loadError wraps err as a LoadError, taking the line from the message when
// line is unknown.
func loadError(line int, err error) error {
	if line == 0 {
		if m := lineRe.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
	}
	return &cad.LoadError{Format: FormatName, Line: line, Err: err}
}

// lineError pins an error to a more precise source line.
type lineError struct {
	line int
	err  error
}

func (e *lineError) Error() string { return e.err.Error() }
func (e *lineError) Unwrap() error { return e.err }

func buildShape(s *shapeSpec) (*cad.Shape, error) {
	switch {
	case s.Box != nil && len(s.Faces) > 0:
		return nil, errors.New("box and faces are mutually exclusive")
	case s.Box != nil:
		return buildBox(s)
	case len(s.Faces) == 0:
		return nil, errors.New("shape has no faces")
	}

	shape := &cad.Shape{ID: cad.ShapeID(s.ID), Name: s.Name, Faces: make([]cad.Face, 0, len(s.Faces))}
	for i := range s.Faces {
		face, err := buildFace(&s.Faces[i])
		if err != nil {
			return nil, &lineError{line: s.Faces[i].line, err: fmt.Errorf("face %d: %w", i, err)}
		}
		shape.Faces = append(shape.Faces, face)
	}
	return shape, nil
}

func buildBox(s *shapeSpec) (*cad.Shape, error) {
	size := s.Box.Size
	if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
		return nil, fmt.Errorf("box size %v must be positive", size)
	}
	shape := cad.Box(cad.ShapeID(s.ID), s.Name, size[0], size[1], size[2])
	for key, c := range s.Box.FaceColors {
		idx, ok := boxFaceNames[strings.ToLower(key)]
		if !ok {
			n, err := strconv.Atoi(key)
			if err != nil || n < 0 || n >= len(shape.Faces) {
				return nil, fmt.Errorf("unknown box face %q", key)
			}
			idx = n
		}
		shape.Faces[idx].Color = c.color()
	}
	return shape, nil
}

func buildFace(f *faceSpec) (cad.Face, error) {
	var (
		surfaces []cad.Surface
		face     cad.Face
	)
	if f.Planar != nil {
		p := &cad.Planar{Points: make([]v3.Vec, len(f.Planar.Points))}
		for i, pt := range f.Planar.Points {
			p.Points[i] = pt.vec()
		}
		if f.Planar.Normal != nil {
			n := f.Planar.Normal.vec()
			p.Normal = &n
		}
		surfaces = append(surfaces, p)
	}
	if c := f.Cylinder; c != nil {
		surfaces = append(surfaces, &cad.Cylindrical{
			Origin:     c.Origin.vec(),
			Axis:       orDefault(c.Axis, v3.Vec{Z: 1}),
			RefDir:     orDefault(c.RefDir, v3.Vec{X: 1}),
			Radius:     c.Radius,
			Height:     c.Height,
			StartAngle: radians(c.StartAngle),
			Sweep:      radians(c.Sweep),
			Reversed:   c.Reversed,
		})
	}
	if s := f.Sphere; s != nil {
		surfaces = append(surfaces, &cad.Spherical{
			Center:   s.Center.vec(),
			Radius:   s.Radius,
			LatMin:   radians(s.LatMin),
			LatMax:   radians(s.LatMax),
			LonStart: radians(s.LonStart),
			Sweep:    radians(s.Sweep),
			Reversed: s.Reversed,
		})
	}
	if im := f.Implicit; im != nil {
		prim, ok := implicitPrimitives[strings.ToLower(im.Primitive)]
		if !ok {
			return face, fmt.Errorf("unknown implicit primitive %q", im.Primitive)
		}
		surfaces = append(surfaces, &cad.Implicit{
			Primitive: prim,
			Center:    im.Center.vec(),
			Size:      im.Size.vec(),
			Radius:    im.Radius,
			Height:    im.Height,
			Round:     im.Round,
		})
	}

	switch len(surfaces) {
	case 0:
		return face, errors.New("face has no surface (want planar, cylinder, sphere or implicit)")
	case 1:
		face.Surface = surfaces[0]
	default:
		return face, errors.New("face has more than one surface")
	}
	if f.Color != nil {
		face.Color = f.Color.color()
	}
	return face, nil
}

func buildNode(id string, n *nodeSpec) *cad.ProductNode {
	node := &cad.ProductNode{ID: cad.NodeID(id), Name: n.Name}
	if n.Color != nil {
		node.Color = n.Color.color()
	}
	for _, o := range n.Occurrences {
		occ := cad.Occurrence{
			Shape:     cad.ShapeID(o.Shape),
			Name:      o.Name,
			Placement: placement(o.At, o.Rotate),
		}
		if o.Color != nil {
			occ.Color = o.Color.color()
		}
		node.Occurrences = append(node.Occurrences, occ)
	}
	for _, c := range n.Children {
		node.Children = append(node.Children, cad.Component{
			Node:      cad.NodeID(c.Node),
			Placement: placement(c.At, c.Rotate),
		})
	}
	return node
}

func placement(at, rotate *vec3) *cad.Placement {
	if at == nil && rotate == nil {
		return nil
	}
	p := &cad.Placement{}
	if at != nil {
		p.Translation = at.vec()
	}
	if rotate != nil {
		p.Rotation = rotate.vec()
	}
	return p
}

func (v vec3) vec() v3.Vec {
	return v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func (c colorSpec) color() *cad.Color {
	return cad.NewColor(c[0], c[1], c[2])
}

func orDefault(v *vec3, def v3.Vec) v3.Vec {
	if v == nil {
		return def
	}
	return v.vec()
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
