package cad

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// BoundingBox returns the axis-aligned bounds of every occurrence reachable
// from the document roots, with placements applied. ok is false when the
// document holds no placed geometry.
//
// The walk uses an explicit stack and assumes an acyclic product structure
// (see Validate); instanced sub-assemblies are visited once per reference.
func BoundingBox(d *Document) (bb sdf.Box3, ok bool) {
	type frame struct {
		node  *ProductNode
		xf    sdf.M44
		depth int
	}

	local := make(map[ShapeID]sdf.Box3)
	shapeBounds := func(s *Shape) (sdf.Box3, bool) {
		if b, cached := local[s.ID]; cached {
			return b, true
		}
		if len(s.Faces) == 0 {
			return sdf.Box3{}, false
		}
		var b sdf.Box3
		first := true
		for _, f := range s.Faces {
			if f.Surface == nil {
				continue
			}
			fb := f.Surface.Bounds()
			if first {
				b, first = fb, false
			} else {
				b = b.Extend(fb)
			}
		}
		if first {
			return sdf.Box3{}, false
		}
		local[s.ID] = b
		return b, true
	}

	var stack []frame
	for i := len(d.Roots) - 1; i >= 0; i-- {
		if n := d.Node(d.Roots[i]); n != nil {
			stack = append(stack, frame{node: n, xf: sdf.Identity3d()})
		}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > MaxDepth {
			continue
		}

		for _, occ := range f.node.Occurrences {
			s := d.Shape(occ.Shape)
			if s == nil {
				continue
			}
			sb, has := shapeBounds(s)
			if !has {
				continue
			}
			placed := Compose(f.xf, occ.Placement).MulBox(sb)
			if !ok {
				bb, ok = placed, true
			} else {
				bb = bb.Extend(placed)
			}
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			c := f.node.Children[i]
			if child := d.Node(c.Node); child != nil {
				stack = append(stack, frame{node: child, xf: Compose(f.xf, c.Placement), depth: f.depth + 1})
			}
		}
	}
	return bb, ok
}

// BoundingBoxDiagonal returns the length of the document's bounding-box
// diagonal, or 0 for a document without geometry.
func BoundingBoxDiagonal(d *Document) float64 {
	bb, ok := BoundingBox(d)
	if !ok {
		return 0
	}
	diag := bb.Size().Length()
	if math.IsNaN(diag) || math.IsInf(diag, 0) {
		return 0
	}
	return diag
}
