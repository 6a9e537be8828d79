package scene

import (
	"fmt"

	"github.com/chazu/cadscene/pkg/cad"
	"github.com/chazu/cadscene/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	"go.uber.org/zap"
)

// Walker traverses a document's product structure and collects the meshes
// of every occurrence.
type Walker struct {
	builder *MeshBuilder
	log     *zap.Logger
}

// NewWalker returns a walker that builds meshes with b.
func NewWalker(b *MeshBuilder, log *zap.Logger) *Walker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker{builder: b, log: log}
}

// frame is one pending product node visit.
type frame struct {
	node      *cad.ProductNode
	inherited *cad.Color
	xf        sdf.M44
	target    *Node
	depth     int
}

// Walk visits every root of doc depth-first and returns the synthetic root
// node (empty name, no meshes) together with the global mesh list.
//
// Children are visited in document order; the order of Node.Children and of
// the mesh list follows that traversal. A sub-assembly referenced several
// times is visited once per reference and produces its own meshes each
// time. The walk uses an explicit stack, so deep structures do not grow the
// goroutine stack. doc must be acyclic (see cad.Validate). Dangling
// references and nodes deeper than cad.MaxDepth are skipped with a
// structure warning and leave no node in the tree.
func (w *Walker) Walk(doc *cad.Document, tol kernel.Deflection) (*Node, []*Mesh, []Warning) {
	root := newNode("")
	meshes := []*Mesh{}
	var warnings []Warning

	var stack []frame
	// Nodes are created in document order, then their frames reversed so
	// the first child is popped first.
	pushAll := func(parent *Node, refs []cad.Component, inherited *cad.Color, xf sdf.M44, depth int) {
		start := len(stack)
		for _, c := range refs {
			n := doc.Node(c.Node)
			if n == nil {
				warnings = append(warnings, Warning{
					Kind:    WarningStructure,
					Message: fmt.Sprintf("missing product node %q", c.Node),
				})
				continue
			}
			if depth > cad.MaxDepth {
				w.log.Warn("product structure too deep, subtree dropped", zap.String("node", string(n.ID)))
				warnings = append(warnings, Warning{
					Kind:    WarningStructure,
					Message: fmt.Sprintf("node %q nested deeper than %d levels, subtree dropped", n.ID, cad.MaxDepth),
				})
				continue
			}
			target := newNode(n.Name)
			parent.Children = append(parent.Children, target)
			stack = append(stack, frame{node: n, inherited: inherited, xf: cad.Compose(xf, c.Placement), target: target, depth: depth})
		}
		for i, j := start, len(stack)-1; i < j; i, j = i+1, j-1 {
			stack[i], stack[j] = stack[j], stack[i]
		}
	}

	roots := make([]cad.Component, 0, len(doc.Roots))
	for _, id := range doc.Roots {
		roots = append(roots, cad.Component{Node: id})
	}
	pushAll(root, roots, nil, sdf.Identity3d(), 0)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		color := InheritColor(f.node.Color, f.inherited)
		for i := range f.node.Occurrences {
			occ := &f.node.Occurrences[i]
			shape := doc.Shape(occ.Shape)
			if shape == nil {
				warnings = append(warnings, Warning{
					Kind:    WarningStructure,
					Message: fmt.Sprintf("node %q: missing shape %q", f.node.ID, occ.Shape),
				})
				continue
			}
			built, warn := w.builder.Build(occ, shape, cad.Compose(f.xf, occ.Placement), color, tol)
			warnings = append(warnings, warn...)
			for _, m := range built {
				f.target.Meshes = append(f.target.Meshes, len(meshes))
				meshes = append(meshes, m)
			}
		}
		pushAll(f.target, f.node.Children, color, f.xf, f.depth+1)
	}
	return root, meshes, warnings
}
