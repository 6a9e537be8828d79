package scene

import (
	"fmt"
	"math"
)

// colorEpsilon is the tolerance used when comparing decoded colors.
const colorEpsilon = 1e-6

// RGB is a decoded linear color with components in [0,1].
type RGB [3]float64

// Equal reports whether two colors match within colorEpsilon per component.
func (c RGB) Equal(o RGB) bool {
	for i := range c {
		if math.Abs(c[i]-o[i]) > colorEpsilon {
			return false
		}
	}
	return true
}

func (c RGB) String() string {
	return fmt.Sprintf("[%g, %g, %g]", c[0], c[1], c[2])
}

// Attributes holds the per-vertex buffers of a mesh.
type Attributes struct {
	Position []float32 `json:"position"`
	Normal   []float32 `json:"normal,omitempty"`
}

// FaceColorRange marks an inclusive run of triangles (by triangle index in
// the mesh's index buffer) whose color differs from the mesh color.
type FaceColorRange struct {
	First uint32 `json:"first"`
	Last  uint32 `json:"last"`
	Color RGB    `json:"color"`
}

// Mesh is the triangulated geometry of one shape occurrence.
type Mesh struct {
	Name       string           `json:"name"`
	Color      RGB              `json:"color"`
	Attributes Attributes       `json:"attributes"`
	Index      []uint32         `json:"index"`
	FaceColors []FaceColorRange `json:"face_colors,omitempty"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Attributes.Position) / 3 }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Index) / 3 }

// Node mirrors one product node. Meshes holds indices into Result.Meshes.
// Both slices are always non-nil so they encode as empty arrays.
type Node struct {
	Name     string  `json:"name"`
	Meshes   []int   `json:"meshes"`
	Children []*Node `json:"children"`
}

func newNode(name string) *Node {
	return &Node{Name: name, Meshes: []int{}, Children: []*Node{}}
}

// WarningKind classifies a non-fatal conversion problem.
type WarningKind string

const (
	WarningTessellation  WarningKind = "tessellation"
	WarningConfiguration WarningKind = "configuration"
	// WarningStructure marks product structure the walker could not follow:
	// dangling references or nesting beyond cad.MaxDepth. Documents that
	// pass cad.Validate never produce it.
	WarningStructure WarningKind = "structure"
)

// Warning records a non-fatal problem. Shape and Face are set for
// tessellation warnings only; encoders drop Face for the other kinds.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Shape   string      `json:"shape,omitempty"`
	Face    int         `json:"face"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Kind == WarningTessellation {
		return fmt.Sprintf("%s: shape %s face %d: %s", w.Kind, w.Shape, w.Face, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Result is the outcome of one conversion. On failure only Success and
// Message are set. On success Meshes is non-nil, possibly empty.
type Result struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	Meshes   []*Mesh   `json:"meshes"`
	Root     *Node     `json:"root,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`

	// RunID identifies the conversion in logs. It is not encoded.
	RunID string `json:"-" cbor:"-"`
}

// TriangleCount returns the total number of triangles over all meshes.
func (r *Result) TriangleCount() int {
	n := 0
	for _, m := range r.Meshes {
		n += m.TriangleCount()
	}
	return n
}

// VertexCount returns the total number of vertices over all meshes.
func (r *Result) VertexCount() int {
	n := 0
	for _, m := range r.Meshes {
		n += m.VertexCount()
	}
	return n
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}
