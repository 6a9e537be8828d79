package cad

import "fmt"

// MaxDepth bounds product-structure nesting. Deeper documents are rejected
// by Validate and truncated by walkers.
const MaxDepth = 1 << 16

// ValidationSeverity indicates whether a validation finding blocks
// conversion or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks conversion
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID // zero if document-level
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID, e.Message)
}

// Validate runs the structural checks on a document and returns every
// finding. It never mutates the document.
func Validate(d *Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRoots(d)...)
	errs = append(errs, validateReferences(d)...)
	errs = append(errs, validateDAG(d)...)
	errs = append(errs, validateNames(d)...)
	return errs
}

// Errors filters findings down to the blocking ones.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

func validateRoots(d *Document) []ValidationError {
	if len(d.Roots) == 0 {
		return []ValidationError{{Message: "document has no root product node", Severity: SeverityError}}
	}
	var errs []ValidationError
	for _, id := range d.Roots {
		if d.Node(id) == nil {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "root references a missing product node",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateReferences checks that every child component and every occurrence
// points at an existing arena entry.
func validateReferences(d *Document) []ValidationError {
	var errs []ValidationError
	for _, id := range d.order() {
		n := d.Nodes[id]
		for _, c := range n.Children {
			if d.Node(c.Node) == nil {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("child references missing product node %q", c.Node),
					Severity: SeverityError,
				})
			}
		}
		for i, occ := range n.Occurrences {
			if d.Shape(occ.Shape) == nil {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("occurrence %d references missing shape %q", i, occ.Shape),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateDAG checks for cycles and excessive depth using an iterative DFS
// with 3-color marking. White = unvisited, gray = on the current path,
// black = fully explored. Reaching a gray node means a cycle.
//
// Each node's height (edges on its longest downward path) is memoized when
// it turns black, so the depth check sees the longest path from every root
// regardless of the order nodes were declared in.
func validateDAG(d *Document) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	type frame struct {
		id   NodeID
		next int // index of the next child to explore
	}

	color := make(map[NodeID]int)
	height := make(map[NodeID]int)
	for _, start := range d.order() {
		if color[start] != white {
			continue
		}
		color[start] = gray
		stack := []frame{{id: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			n := d.Nodes[top.id]
			if top.next >= len(n.Children) {
				h := 0
				for _, c := range n.Children {
					if d.Node(c.Node) != nil && height[c.Node]+1 > h {
						h = height[c.Node] + 1
					}
				}
				height[top.id] = h
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			childID := n.Children[top.next].Node
			top.next++

			if d.Node(childID) == nil {
				continue // dangling; reported by validateReferences
			}
			switch color[childID] {
			case gray:
				return []ValidationError{{
					NodeID:   childID,
					Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", childID),
					Severity: SeverityError,
				}}
			case black:
				continue
			}
			color[childID] = gray
			stack = append(stack, frame{id: childID})
		}
	}

	for _, r := range d.Roots {
		if d.Node(r) != nil && height[r] > MaxDepth {
			return []ValidationError{{
				NodeID:   r,
				Message:  fmt.Sprintf("product structure deeper than %d levels", MaxDepth),
				Severity: SeverityError,
			}}
		}
	}
	return nil
}

func validateNames(d *Document) []ValidationError {
	var errs []ValidationError
	for _, id := range d.order() {
		if d.Nodes[id].Name == "" {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "product node has no name",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
