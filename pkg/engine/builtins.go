package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/cadscene/pkg/cad"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols.
//  2. Kebab-case identifiers become underscores (box-shape -> box_shape);
//     zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' && j+1 < len(b) {
					j++
				}
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j

		case b[i] == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j

		case b[i] == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		// A hyphen between identifier characters is part of a name, not a
		// minus operator.
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, b[i])
			i++
		}
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct{ vec v3.Vec }

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpColor struct{ color cad.Color }

func (c *sexpColor) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(rgb %g %g %g)", c.color.R, c.color.G, c.color.B)
}
func (c *sexpColor) Type() *zygo.RegisteredType { return nil }

type sexpFace struct{ face cad.Face }

func (f *sexpFace) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(face %s)", f.face.Surface.Kind())
}
func (f *sexpFace) Type() *zygo.RegisteredType { return nil }

type sexpShapeRef struct{ id cad.ShapeID }

func (s *sexpShapeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(shape %q)", s.id)
}
func (s *sexpShapeRef) Type() *zygo.RegisteredType { return nil }

type sexpOccurrence struct{ occ cad.Occurrence }

func (o *sexpOccurrence) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(occurrence %q)", o.occ.Shape)
}
func (o *sexpOccurrence) Type() *zygo.RegisteredType { return nil }

type sexpNodeRef struct{ id cad.NodeID }

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q)", n.id)
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

type sexpComponent struct{ comp cad.Component }

func (c *sexpComponent) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(instance %q)", c.comp.Node)
}
func (c *sexpComponent) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a mixed positional and keyword argument list.
type kwArgs struct {
	fn         string
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A keyword
// in last position gets SexpNull as its value.
func parseArgs(fn string, args []zygo.Sexp) kwArgs {
	pa := kwArgs{fn: fn, kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			pa.positional = append(pa.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			pa.kw[name] = args[i+1]
			i++
		} else {
			pa.kw[name] = zygo.SexpNull
		}
	}
	return pa
}

// allow rejects keywords outside the given set.
func (pa kwArgs) allow(names ...string) error {
	for k := range pa.kw {
		found := false
		for _, n := range names {
			if k == n {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: unknown keyword :%s", pa.fn, k)
		}
	}
	return nil
}

func (pa kwArgs) wrap(key string, err error) error {
	return fmt.Errorf("%s: %s: %w", pa.fn, key, err)
}

func (pa kwArgs) float(key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return pa.wrap(key, err)
	}
	*dst = f
	return nil
}

// angle reads a value in degrees and stores it in radians.
func (pa kwArgs) angle(key string, dst *float64) error {
	var deg float64
	if err := pa.float(key, &deg); err != nil {
		return err
	}
	if _, ok := pa.kw[key]; ok {
		*dst = deg * math.Pi / 180
	}
	return nil
}

func (pa kwArgs) vec(key string, dst *v3.Vec) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return pa.wrap(key, err)
	}
	*dst = vec
	return nil
}

func (pa kwArgs) color(key string, dst **cad.Color) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	c, err := toColor(v)
	if err != nil {
		return pa.wrap(key, err)
	}
	*dst = c
	return nil
}

func (pa kwArgs) str(key string, dst *string) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	s, err := toString(v)
	if err != nil {
		return pa.wrap(key, err)
	}
	*dst = s
	return nil
}

func (pa kwArgs) boolean(key string, dst *bool) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	switch b := v.(type) {
	case *zygo.SexpBool:
		*dst = b.Val
		return nil
	case *zygo.SexpSentinel:
		if b == zygo.SexpNull {
			// Trailing flag keyword.
			*dst = true
			return nil
		}
	}
	return pa.wrap(key, fmt.Errorf("expected boolean, got %s", v.SexpString(nil)))
}

// placement reads :at and :rotate. Nil when neither is given.
func (pa kwArgs) placement() (*cad.Placement, error) {
	_, hasAt := pa.kw["at"]
	_, hasRot := pa.kw["rotate"]
	if !hasAt && !hasRot {
		return nil, nil
	}
	p := &cad.Placement{}
	if err := pa.vec("at", &p.Translation); err != nil {
		return nil, err
	}
	if err := pa.vec("rotate", &p.Rotation); err != nil {
		return nil, err
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		if _, kw := isKW(s); !kw {
			return str.S, nil
		}
	}
	return "", fmt.Errorf("expected string, got %s", s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %s", s.SexpString(nil))
}

// toColor accepts (rgb r g b) or a "#rrggbb" string.
func toColor(s zygo.Sexp) (*cad.Color, error) {
	switch v := s.(type) {
	case *sexpColor:
		c := v.color
		return &c, nil
	case *zygo.SexpStr:
		return cad.ParseHexColor(v.S)
	}
	return nil, fmt.Errorf("expected color, got %s", s.SexpString(nil))
}

// toShapeID accepts a defshape result or a shape id string.
func toShapeID(s zygo.Sexp) (cad.ShapeID, error) {
	if ref, ok := s.(*sexpShapeRef); ok {
		return ref.id, nil
	}
	id, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected shape, got %s", s.SexpString(nil))
	}
	return cad.ShapeID(id), nil
}

// toNodeID accepts a part/assembly result or a node id string.
func toNodeID(s zygo.Sexp) (cad.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	id, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected node, got %s", s.SexpString(nil))
	}
	return cad.NodeID(id), nil
}

// sexpListToSlice converts a Lisp list or array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %s", s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Document builder
// ---------------------------------------------------------------------------

// builder accumulates the document during one evaluation.
type builder struct {
	doc           *cad.Document
	explicitRoots bool
}

func newBuilder() *builder {
	return &builder{doc: cad.New("")}
}

// finish defaults the roots to the unreferenced nodes when the script named
// none.
func (b *builder) finish() *cad.Document {
	if !b.explicitRoots {
		for _, id := range b.doc.FreeNodes() {
			b.doc.AddRoot(id)
		}
	}
	return b.doc
}

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

// registerBuiltins installs the assembly builtins into env. They populate
// b as the script runs.
//
// Source must go through preprocessSource first so that :keyword tokens are
// recognizable and kebab-case names match the registered underscore forms.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	for name, fn := range map[string]func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error){
		"vec3":       builtinVec3,
		"rgb":        builtinRGB,
		"planar":     builtinPlanar,
		"cylinder":   builtinCylinder,
		"sphere":     builtinSphere,
		"implicit":   builtinImplicit,
		"occurrence": builtinOccurrence,
		"instance":   builtinInstance,
		"defshape":   b.defshape,
		"box_shape":  b.boxShape,
		"part":       b.productNode,
		"assembly":   b.productNode,
		"root":       b.root,
	} {
		env.AddFunction(name, fn)
	}
}

// (vec3 x y z)
func builtinVec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var xyz [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
		}
		xyz[i] = f
	}
	return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
}

// (rgb r g b) or (rgb "#rrggbb"); components in [0,1].
func builtinRGB(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	switch len(args) {
	case 1:
		c, err := toColor(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rgb: %w", err)
		}
		return &sexpColor{color: *c}, nil
	case 3:
		var rgb [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rgb: %c: %w", "rgb"[i], err)
			}
			rgb[i] = f
		}
		return &sexpColor{color: cad.Color{R: rgb[0], G: rgb[1], B: rgb[2]}}, nil
	}
	return zygo.SexpNull, fmt.Errorf("rgb requires 1 or 3 arguments, got %d", len(args))
}

// (planar p0 p1 p2 ... :normal n :color c)
func builtinPlanar(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs("planar", args)
	if err := pa.allow("normal", "color"); err != nil {
		return zygo.SexpNull, err
	}
	p := &cad.Planar{}
	for i, a := range pa.positional {
		v, err := toVec3(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("planar: point %d: %w", i, err)
		}
		p.Points = append(p.Points, v)
	}
	if _, ok := pa.kw["normal"]; ok {
		var n v3.Vec
		if err := pa.vec("normal", &n); err != nil {
			return zygo.SexpNull, err
		}
		p.Normal = &n
	}
	return newFace(pa, p)
}

// (cylinder :radius r :height h :origin o :axis a :ref-dir d
//
//	:start-angle deg :sweep deg :reversed true :color c)
func builtinCylinder(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs("cylinder", args)
	if err := pa.allow("radius", "height", "origin", "axis", "ref-dir", "start-angle", "sweep", "reversed", "color"); err != nil {
		return zygo.SexpNull, err
	}
	c := &cad.Cylindrical{Axis: v3.Vec{Z: 1}, RefDir: v3.Vec{X: 1}}
	for _, err := range []error{
		pa.float("radius", &c.Radius),
		pa.float("height", &c.Height),
		pa.vec("origin", &c.Origin),
		pa.vec("axis", &c.Axis),
		pa.vec("ref-dir", &c.RefDir),
		pa.angle("start-angle", &c.StartAngle),
		pa.angle("sweep", &c.Sweep),
		pa.boolean("reversed", &c.Reversed),
	} {
		if err != nil {
			return zygo.SexpNull, err
		}
	}
	return newFace(pa, c)
}

// (sphere :radius r :center c :lat-min deg :lat-max deg :lon-start deg
//
//	:sweep deg :reversed true :color c)
func builtinSphere(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs("sphere", args)
	if err := pa.allow("radius", "center", "lat-min", "lat-max", "lon-start", "sweep", "reversed", "color"); err != nil {
		return zygo.SexpNull, err
	}
	s := &cad.Spherical{}
	for _, err := range []error{
		pa.float("radius", &s.Radius),
		pa.vec("center", &s.Center),
		pa.angle("lat-min", &s.LatMin),
		pa.angle("lat-max", &s.LatMax),
		pa.angle("lon-start", &s.LonStart),
		pa.angle("sweep", &s.Sweep),
		pa.boolean("reversed", &s.Reversed),
	} {
		if err != nil {
			return zygo.SexpNull, err
		}
	}
	return newFace(pa, s)
}

// (implicit :sphere :radius r :center c :size v :height h :round r :color c)
//
// The primitive keyword comes first.
func builtinImplicit(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) == 0 {
		return zygo.SexpNull, fmt.Errorf("implicit: missing primitive (want :box, :cylinder or :sphere)")
	}
	kind, ok := isKW(args[0])
	if !ok {
		return zygo.SexpNull, fmt.Errorf("implicit: primitive must be a keyword, got %s", args[0].SexpString(nil))
	}
	prim, ok := implicitPrimitives[kind]
	if !ok {
		return zygo.SexpNull, fmt.Errorf("implicit: unknown primitive :%s", kind)
	}

	pa := parseArgs("implicit", args[1:])
	if err := pa.allow("radius", "center", "size", "height", "round", "color"); err != nil {
		return zygo.SexpNull, err
	}
	im := &cad.Implicit{Primitive: prim}
	for _, err := range []error{
		pa.float("radius", &im.Radius),
		pa.vec("center", &im.Center),
		pa.vec("size", &im.Size),
		pa.float("height", &im.Height),
		pa.float("round", &im.Round),
	} {
		if err != nil {
			return zygo.SexpNull, err
		}
	}
	return newFace(pa, im)
}

// newFace wraps a surface, applying :color and rejecting stray positionals
// for everything but planar.
func newFace(pa kwArgs, s cad.Surface) (zygo.Sexp, error) {
	if s.Kind() != cad.SurfacePlanar && len(pa.positional) > 0 {
		return zygo.SexpNull, fmt.Errorf("%s: unexpected argument %s", pa.fn, pa.positional[0].SexpString(nil))
	}
	f := &sexpFace{face: cad.Face{Surface: s}}
	if err := pa.color("color", &f.face.Color); err != nil {
		return zygo.SexpNull, err
	}
	return f, nil
}

// (occurrence shape :name "n" :at v :rotate v :color c)
func builtinOccurrence(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs("occurrence", args)
	if err := pa.allow("name", "at", "rotate", "color"); err != nil {
		return zygo.SexpNull, err
	}
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("occurrence requires exactly one shape")
	}
	id, err := toShapeID(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("occurrence: %w", err)
	}
	occ := cad.Occurrence{Shape: id}
	if err := pa.str("name", &occ.Name); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.color("color", &occ.Color); err != nil {
		return zygo.SexpNull, err
	}
	if occ.Placement, err = pa.placement(); err != nil {
		return zygo.SexpNull, err
	}
	return &sexpOccurrence{occ: occ}, nil
}

// (instance node :at v :rotate v)
func builtinInstance(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs("instance", args)
	if err := pa.allow("at", "rotate"); err != nil {
		return zygo.SexpNull, err
	}
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("instance requires exactly one node")
	}
	id, err := toNodeID(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("instance: %w", err)
	}
	comp := cad.Component{Node: id}
	if comp.Placement, err = pa.placement(); err != nil {
		return zygo.SexpNull, err
	}
	return &sexpComponent{comp: comp}, nil
}

// (defshape "id" :name "n" face...)
func (b *builder) defshape(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs("defshape", args)
	if err := pa.allow("name"); err != nil {
		return zygo.SexpNull, err
	}
	id, err := b.newShapeID(pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	shape := &cad.Shape{ID: id}
	if err := pa.str("name", &shape.Name); err != nil {
		return zygo.SexpNull, err
	}
	for i, a := range pa.positional[1:] {
		f, ok := a.(*sexpFace)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("defshape %q: face %d: expected face, got %s", id, i, a.SexpString(nil))
		}
		shape.Faces = append(shape.Faces, f.face)
	}
	if len(shape.Faces) == 0 {
		return zygo.SexpNull, fmt.Errorf("defshape %q: shape has no faces", id)
	}
	b.doc.AddShape(shape)
	return &sexpShapeRef{id: id}, nil
}

// (box-shape "id" :name "n" :size v :face-colors (list :top c 3 c ...))
func (b *builder) boxShape(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs("box-shape", args)
	if err := pa.allow("name", "size", "face-colors"); err != nil {
		return zygo.SexpNull, err
	}
	id, err := b.newShapeID(pa)
	if err != nil {
		return zygo.SexpNull, err
	}
	var (
		shapeName string
		size      v3.Vec
	)
	if err := pa.str("name", &shapeName); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.vec("size", &size); err != nil {
		return zygo.SexpNull, err
	}
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return zygo.SexpNull, fmt.Errorf("box-shape %q: size %v must be positive", id, size)
	}
	shape := cad.Box(id, shapeName, size.X, size.Y, size.Z)

	if v, ok := pa.kw["face-colors"]; ok {
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, pa.wrap("face-colors", err)
		}
		if len(items)%2 != 0 {
			return zygo.SexpNull, pa.wrap("face-colors", fmt.Errorf("expected face/color pairs"))
		}
		for i := 0; i < len(items); i += 2 {
			idx, err := boxFaceIndex(items[i], len(shape.Faces))
			if err != nil {
				return zygo.SexpNull, pa.wrap("face-colors", err)
			}
			c, err := toColor(items[i+1])
			if err != nil {
				return zygo.SexpNull, pa.wrap("face-colors", err)
			}
			shape.Faces[idx].Color = c
		}
	}
	b.doc.AddShape(shape)
	return &sexpShapeRef{id: id}, nil
}

func boxFaceIndex(s zygo.Sexp, n int) (int, error) {
	if kw, ok := isKW(s); ok {
		if idx, ok := boxFaceNames[kw]; ok {
			return idx, nil
		}
		return 0, fmt.Errorf("unknown box face :%s", kw)
	}
	if i, ok := s.(*zygo.SexpInt); ok && i.Val >= 0 && int(i.Val) < n {
		return int(i.Val), nil
	}
	return 0, fmt.Errorf("unknown box face %s", s.SexpString(nil))
}

func (b *builder) newShapeID(pa kwArgs) (cad.ShapeID, error) {
	if len(pa.positional) == 0 {
		return "", fmt.Errorf("%s requires an id", pa.fn)
	}
	s, err := toString(pa.positional[0])
	if err != nil {
		return "", pa.wrap("id", err)
	}
	id := cad.ShapeID(s)
	if id == "" {
		return "", fmt.Errorf("%s: empty id", pa.fn)
	}
	if b.doc.Shape(id) != nil {
		return "", fmt.Errorf("%s: duplicate shape id %q", pa.fn, id)
	}
	return id, nil
}

// (part "id" :name "n" :color c occurrence...)
// (assembly "id" :name "n" :color c instance...)
//
// Both forms accept occurrences and instances; a bare shape counts as an
// unplaced occurrence and a bare node as an unplaced instance.
func (b *builder) productNode(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(name, args)
	if err := pa.allow("name", "color"); err != nil {
		return zygo.SexpNull, err
	}
	if len(pa.positional) == 0 {
		return zygo.SexpNull, fmt.Errorf("%s requires an id", name)
	}
	s, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, pa.wrap("id", err)
	}
	id := cad.NodeID(s)
	if id == "" {
		return zygo.SexpNull, fmt.Errorf("%s: empty id", name)
	}
	if b.doc.Node(id) != nil {
		return zygo.SexpNull, fmt.Errorf("%s: duplicate node id %q", name, id)
	}

	node := &cad.ProductNode{ID: id, Name: s}
	if err := pa.str("name", &node.Name); err != nil {
		return zygo.SexpNull, err
	}
	if err := pa.color("color", &node.Color); err != nil {
		return zygo.SexpNull, err
	}
	for i, a := range pa.positional[1:] {
		switch v := a.(type) {
		case *sexpOccurrence:
			node.Occurrences = append(node.Occurrences, v.occ)
		case *sexpShapeRef:
			node.Occurrences = append(node.Occurrences, cad.Occurrence{Shape: v.id})
		case *sexpComponent:
			node.Children = append(node.Children, v.comp)
		case *sexpNodeRef:
			node.Children = append(node.Children, cad.Component{Node: v.id})
		default:
			return zygo.SexpNull, fmt.Errorf("%s %q: child %d: expected occurrence or instance, got %s",
				name, id, i, a.SexpString(nil))
		}
	}
	b.doc.AddNode(node)
	return &sexpNodeRef{id: id}, nil
}

// (root node)
func (b *builder) root(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("root requires exactly one node")
	}
	id, err := toNodeID(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("root: %w", err)
	}
	b.doc.AddRoot(id)
	b.explicitRoots = true
	return &sexpNodeRef{id: id}, nil
}
