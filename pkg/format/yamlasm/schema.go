package yamlasm

import (
	"fmt"

	"github.com/chazu/cadscene/pkg/cad"
	"gopkg.in/yaml.v3"
)

// file is the top-level YAML document.
type file struct {
	Name   string      `yaml:"name"`
	Shapes []shapeSpec `yaml:"shapes"`
	Nodes  []nodeSpec  `yaml:"nodes"`
	Roots  []string    `yaml:"roots"`
}

type shapeSpec struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Box   *boxSpec   `yaml:"box"`
	Faces []faceSpec `yaml:"faces"`

	line int
}

func (s *shapeSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain shapeSpec
	if err := n.Decode((*plain)(s)); err != nil {
		return err
	}
	s.line = n.Line
	return nil
}

// boxSpec is the six-face box shorthand. FaceColors keys are face indices
// (0-5) or names (bottom, top, front, right, back, left).
type boxSpec struct {
	Size       vec3                 `yaml:"size"`
	FaceColors map[string]colorSpec `yaml:"face_colors"`
}

type faceSpec struct {
	Planar   *planarSpec   `yaml:"planar"`
	Cylinder *cylinderSpec `yaml:"cylinder"`
	Sphere   *sphereSpec   `yaml:"sphere"`
	Implicit *implicitSpec `yaml:"implicit"`
	Color    *colorSpec    `yaml:"color"`

	line int
}

func (f *faceSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain faceSpec
	if err := n.Decode((*plain)(f)); err != nil {
		return err
	}
	f.line = n.Line
	return nil
}

type planarSpec struct {
	Points []vec3 `yaml:"points"`
	Normal *vec3  `yaml:"normal"`
}

// Angles are in degrees.
type cylinderSpec struct {
	Origin     vec3    `yaml:"origin"`
	Axis       *vec3   `yaml:"axis"`
	RefDir     *vec3   `yaml:"ref_dir"`
	Radius     float64 `yaml:"radius"`
	Height     float64 `yaml:"height"`
	StartAngle float64 `yaml:"start_angle"`
	Sweep      float64 `yaml:"sweep"`
	Reversed   bool    `yaml:"reversed"`
}

type sphereSpec struct {
	Center   vec3    `yaml:"center"`
	Radius   float64 `yaml:"radius"`
	LatMin   float64 `yaml:"lat_min"`
	LatMax   float64 `yaml:"lat_max"`
	LonStart float64 `yaml:"lon_start"`
	Sweep    float64 `yaml:"sweep"`
	Reversed bool    `yaml:"reversed"`
}

type implicitSpec struct {
	Primitive string  `yaml:"primitive"`
	Center    vec3    `yaml:"center"`
	Size      vec3    `yaml:"size"`
	Radius    float64 `yaml:"radius"`
	Height    float64 `yaml:"height"`
	Round     float64 `yaml:"round"`
}

type nodeSpec struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Color       *colorSpec       `yaml:"color"`
	Occurrences []occurrenceSpec `yaml:"occurrences"`
	Children    []componentSpec  `yaml:"children"`

	line int
}

func (s *nodeSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain nodeSpec
	if err := n.Decode((*plain)(s)); err != nil {
		return err
	}
	s.line = n.Line
	return nil
}

type occurrenceSpec struct {
	Shape  string     `yaml:"shape"`
	Name   string     `yaml:"name"`
	At     *vec3      `yaml:"at"`
	Rotate *vec3      `yaml:"rotate"`
	Color  *colorSpec `yaml:"color"`
}

type componentSpec struct {
	Node   string `yaml:"node"`
	At     *vec3  `yaml:"at"`
	Rotate *vec3  `yaml:"rotate"`
}

// vec3 is a three-element sequence.
type vec3 [3]float64

func (v *vec3) UnmarshalYAML(n *yaml.Node) error {
	var xs []float64
	if err := n.Decode(&xs); err != nil {
		return err
	}
	if len(xs) != 3 {
		return fmt.Errorf("line %d: vector needs 3 components, got %d", n.Line, len(xs))
	}
	copy(v[:], xs)
	return nil
}

// colorSpec is a stored color, written as [r, g, b] with components in
// [0,1] or as a "#rrggbb" string.
type colorSpec [3]float64

func (c *colorSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		rgb, err := cad.ParseHexColor(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		*c = colorSpec{rgb.R, rgb.G, rgb.B}
		return nil
	}
	var v vec3
	if err := n.Decode(&v); err != nil {
		return err
	}
	*c = colorSpec(v)
	return nil
}
