package cad

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ShapeID keys a shape in the document's shape arena.
type ShapeID string

// NodeID keys a product node in the document's node arena.
type NodeID string

// Color is an RGB triple in the document's stored representation
// (sRGB-encoded, each component in [0,1]). A nil *Color means "not set".
type Color struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
}

// NewColor returns a pointer to a stored color, for use in optional fields.
func NewColor(r, g, b float64) *Color {
	return &Color{R: r, G: g, B: b}
}

func (c Color) String() string {
	return fmt.Sprintf("rgb(%g, %g, %g)", c.R, c.G, c.B)
}

// ParseHexColor parses a "#rrggbb" string. The leading # is optional.
func ParseHexColor(s string) (*Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return nil, fmt.Errorf("color %q is not #rrggbb", s)
	}
	var rgb [3]float64
	for i := range rgb {
		b, err := strconv.ParseUint(h[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("color %q is not #rrggbb", s)
		}
		rgb[i] = float64(b) / 255
	}
	return NewColor(rgb[0], rgb[1], rgb[2]), nil
}

// Face is one topological face of a shape.
type Face struct {
	Surface Surface
	Color   *Color // face-level override
}

// Shape is an ordered sequence of faces. Geometry is shared by every
// occurrence that references the shape.
type Shape struct {
	ID    ShapeID
	Name  string
	Faces []Face
}

// Occurrence places a shape inside a product node.
type Occurrence struct {
	Shape     ShapeID
	Name      string     // optional label, falls back to the shape name
	Placement *Placement // nil = identity
	Color     *Color
}

// Component references a sub-assembly from its parent. The same node may be
// referenced by several components; each reference is a separate instance.
type Component struct {
	Node      NodeID
	Placement *Placement
}

// ProductNode is a labeled node of the product structure.
type ProductNode struct {
	ID          NodeID
	Name        string
	Color       *Color
	Occurrences []Occurrence
	Children    []Component
}

// Document is a parsed CAD assembly. Populate it through AddShape, AddNode
// and AddRoot; declaration order is tracked by AddNode. The zero value is
// usable. Nodes written into the Nodes map directly are still validated and
// walked; they come after the AddNode ones, sorted by ID.
type Document struct {
	Name   string
	Shapes map[ShapeID]*Shape
	Nodes  map[NodeID]*ProductNode
	Roots  []NodeID

	nodeOrder []NodeID
}

// New creates an empty document.
func New(name string) *Document {
	return &Document{
		Name:   name,
		Shapes: make(map[ShapeID]*Shape),
		Nodes:  make(map[NodeID]*ProductNode),
	}
}

// AddShape registers a shape. A shape with the same ID is replaced.
func (d *Document) AddShape(s *Shape) {
	if d.Shapes == nil {
		d.Shapes = make(map[ShapeID]*Shape)
	}
	d.Shapes[s.ID] = s
}

// AddNode registers a product node. A node with the same ID is replaced but
// keeps its original position in declaration order.
func (d *Document) AddNode(n *ProductNode) {
	if d.Nodes == nil {
		d.Nodes = make(map[NodeID]*ProductNode)
	}
	if _, exists := d.Nodes[n.ID]; !exists {
		d.nodeOrder = append(d.nodeOrder, n.ID)
	}
	d.Nodes[n.ID] = n
}

// AddRoot registers a top-level product node.
func (d *Document) AddRoot(id NodeID) {
	d.Roots = append(d.Roots, id)
}

// Shape returns the shape with the given ID, or nil.
func (d *Document) Shape(id ShapeID) *Shape {
	return d.Shapes[id]
}

// Node returns the product node with the given ID, or nil.
func (d *Document) Node(id NodeID) *ProductNode {
	return d.Nodes[id]
}

// NodeIDs returns node IDs in declaration order.
func (d *Document) NodeIDs() []NodeID {
	return d.order()
}

// order lists the IDs of the nodes present in the arena: AddNode order
// first, then any node added to the map directly, sorted.
func (d *Document) order() []NodeID {
	ids := make([]NodeID, 0, len(d.Nodes))
	seen := make(map[NodeID]bool, len(d.Nodes))
	for _, id := range d.nodeOrder {
		if _, ok := d.Nodes[id]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == len(d.Nodes) {
		return ids
	}
	var extra []NodeID
	for id := range d.Nodes {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(ids, extra...)
}

// FreeNodes returns, in declaration order, the nodes that no other node
// references as a child. Loaders use it when a file declares no explicit roots.
func (d *Document) FreeNodes() []NodeID {
	referenced := make(map[NodeID]bool)
	for _, n := range d.Nodes {
		for _, c := range n.Children {
			referenced[c.Node] = true
		}
	}
	var free []NodeID
	for _, id := range d.order() {
		if !referenced[id] {
			free = append(free, id)
		}
	}
	return free
}

// NodeCount returns the number of product nodes in the arena.
func (d *Document) NodeCount() int {
	return len(d.Nodes)
}

// ShapeCount returns the number of shapes in the arena.
func (d *Document) ShapeCount() int {
	return len(d.Shapes)
}
