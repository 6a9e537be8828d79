package scene

import (
	"fmt"

	"github.com/chazu/cadscene/pkg/cad"
	"github.com/chazu/cadscene/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
)

// faceKey identifies one face of one shape for the tessellation memo.
type faceKey struct {
	shape cad.ShapeID
	face  int
}

type memoEntry struct {
	mesh *kernel.FaceMesh
	err  error
}

// MeshBuilder turns one shape occurrence into meshes. A MeshBuilder is used
// for a single conversion and is not safe for concurrent use.
type MeshBuilder struct {
	tess        kernel.Tessellator
	maxVertices int
	memo        map[faceKey]memoEntry // nil unless face reuse is enabled
	log         *zap.Logger
}

// NewMeshBuilder returns a builder for one conversion.
func NewMeshBuilder(t kernel.Tessellator, opts Options) *MeshBuilder {
	b := &MeshBuilder{
		tess:        t,
		maxVertices: opts.MaxVertices,
		log:         opts.logger(),
	}
	if opts.ReuseShapeTessellation {
		b.memo = make(map[faceKey]memoEntry)
	}
	return b
}

// Build tessellates every face of shape and merges the results into one
// mesh, or several when the vertex limit is reached. xf is the accumulated
// placement of the occurrence and inherited the color of the enclosing
// product node. Faces that fail to tessellate are skipped with a warning;
// a shape with no surviving faces yields no mesh.
func (b *MeshBuilder) Build(occ *cad.Occurrence, shape *cad.Shape, xf sdf.M44, inherited *cad.Color, tol kernel.Deflection) ([]*Mesh, []Warning) {
	base := ResolveOccurrenceColor(occ.Color, inherited)
	name := occ.Name
	if name == "" {
		name = shape.Name
	}

	var (
		meshes   []*Mesh
		warnings []Warning
	)
	acc := newAccumulator(name, base, xf)
	for i := range shape.Faces {
		face := &shape.Faces[i]
		fm, err := b.tessellate(shape.ID, i, face, tol)
		if err != nil {
			b.log.Debug("face skipped",
				zap.String("shape", string(shape.ID)),
				zap.Int("face", i),
				zap.Error(err))
			warnings = append(warnings, Warning{
				Kind:    WarningTessellation,
				Shape:   string(shape.ID),
				Face:    i,
				Message: err.Error(),
			})
			continue
		}
		if fm.IsEmpty() {
			continue
		}
		if b.maxVertices > 0 && acc.vertexCount() > 0 && acc.vertexCount()+fm.VertexCount() > b.maxVertices {
			meshes = append(meshes, acc.finish())
			acc = newAccumulator(name, base, xf)
		}
		acc.add(fm, ResolveFaceColor(face.Color, base))
	}
	if acc.vertexCount() > 0 {
		meshes = append(meshes, acc.finish())
	}
	return meshes, warnings
}

func (b *MeshBuilder) tessellate(id cad.ShapeID, i int, face *cad.Face, tol kernel.Deflection) (*kernel.FaceMesh, error) {
	key := faceKey{shape: id, face: i}
	if b.memo != nil {
		if e, ok := b.memo[key]; ok {
			return e.mesh, e.err
		}
	}
	fm, err := b.tess.TessellateFace(face, tol)
	if err == nil {
		if fm == nil {
			fm = &kernel.FaceMesh{}
		} else if verr := fm.Validate(); verr != nil {
			fm, err = nil, fmt.Errorf("tessellator returned a malformed mesh: %w", verr)
		}
	}
	if b.memo != nil {
		b.memo[key] = memoEntry{mesh: fm, err: err}
	}
	return fm, err
}

// accumulator concatenates face meshes into one output mesh.
type accumulator struct {
	mesh     *Mesh
	xf       sdf.M44
	identity bool
	normals  bool // false once any face arrives without normals
}

func newAccumulator(name string, base RGB, xf sdf.M44) *accumulator {
	return &accumulator{
		mesh: &Mesh{
			Name:  name,
			Color: base,
			Attributes: Attributes{
				Position: []float32{},
			},
			Index: []uint32{},
		},
		xf:       xf,
		identity: xf == sdf.Identity3d(),
		normals:  true,
	}
}

func (a *accumulator) vertexCount() int {
	return len(a.mesh.Attributes.Position) / 3
}

func (a *accumulator) add(fm *kernel.FaceMesh, color RGB) {
	m := a.mesh
	offset := uint32(a.vertexCount())
	firstTri := uint32(len(m.Index) / 3)

	if a.identity {
		m.Attributes.Position = append(m.Attributes.Position, fm.Vertices...)
	} else {
		for i := 0; i+2 < len(fm.Vertices); i += 3 {
			p := a.xf.MulPosition(v3.Vec{X: float64(fm.Vertices[i]), Y: float64(fm.Vertices[i+1]), Z: float64(fm.Vertices[i+2])})
			m.Attributes.Position = append(m.Attributes.Position, float32(p.X), float32(p.Y), float32(p.Z))
		}
	}

	if a.normals && fm.HasNormals() {
		if a.identity {
			m.Attributes.Normal = append(m.Attributes.Normal, fm.Normals...)
		} else {
			for i := 0; i+2 < len(fm.Normals); i += 3 {
				n := cad.TransformNormal(a.xf, v3.Vec{X: float64(fm.Normals[i]), Y: float64(fm.Normals[i+1]), Z: float64(fm.Normals[i+2])})
				m.Attributes.Normal = append(m.Attributes.Normal, float32(n.X), float32(n.Y), float32(n.Z))
			}
		}
	} else {
		a.normals = false
		m.Attributes.Normal = nil
	}

	for _, idx := range fm.Indices {
		m.Index = append(m.Index, idx+offset)
	}

	if color.Equal(m.Color) {
		return
	}
	last := firstTri + uint32(fm.TriangleCount()) - 1
	if n := len(m.FaceColors); n > 0 {
		prev := &m.FaceColors[n-1]
		if prev.Last+1 == firstTri && prev.Color.Equal(color) {
			prev.Last = last
			return
		}
	}
	m.FaceColors = append(m.FaceColors, FaceColorRange{First: firstTri, Last: last, Color: color})
}

func (a *accumulator) finish() *Mesh {
	return a.mesh
}
