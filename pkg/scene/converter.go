package scene

import (
	"strings"

	"github.com/chazu/cadscene/pkg/cad"
	"github.com/chazu/cadscene/pkg/kernel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Loader parses raw document bytes.
type Loader interface {
	Load(data []byte) (*cad.Document, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(data []byte) (*cad.Document, error)

func (f LoaderFunc) Load(data []byte) (*cad.Document, error) { return f(data) }

// Options tune a Converter.
type Options struct {
	// MaxVertices splits an occurrence's mesh once it would exceed this many
	// vertices. Zero means unlimited.
	MaxVertices int
	// ReuseShapeTessellation tessellates each face of a shared shape once
	// per conversion. Output is unchanged; every occurrence still gets its
	// own mesh.
	ReuseShapeTessellation bool
	Logger                 *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Converter runs conversions with a fixed tessellator. It holds no state
// between calls.
type Converter struct {
	tess kernel.Tessellator
	opts Options
	log  *zap.Logger
}

// NewConverter returns a Converter using t for every face.
func NewConverter(t kernel.Tessellator, opts Options) *Converter {
	return &Converter{tess: t, opts: opts, log: opts.logger()}
}

// Convert loads data with loader and assembles the scene. A load failure
// yields an unsuccessful Result.
func (c *Converter) Convert(data []byte, loader Loader, params Params) Result {
	if loader == nil {
		return failure("no loader")
	}
	doc, err := loader.Load(data)
	if err != nil {
		c.log.Error("load failed", zap.Error(err))
		return failure("%v", err)
	}
	return c.Assemble(doc, params)
}

// Assemble converts a loaded document. Structural problems found by
// cad.Validate (missing root, dangling references, cycles) fail the
// conversion; tessellation problems only produce warnings.
func (c *Converter) Assemble(doc *cad.Document, params Params) Result {
	runID := uuid.New().String()
	log := c.log.With(zap.String("run", runID))

	if doc == nil {
		return failure("no document")
	}
	if errs := cad.Errors(cad.Validate(doc)); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		log.Error("invalid document", zap.String("document", doc.Name), zap.Strings("errors", msgs))
		res := failure("invalid document: %s", strings.Join(msgs, "; "))
		res.RunID = runID
		return res
	}

	tol, warnings := ResolveDeflection(doc, params)
	log.Debug("tolerances resolved",
		zap.Float64("linear", tol.Linear),
		zap.Float64("angular", tol.Angular))

	walker := NewWalker(NewMeshBuilder(c.tess, Options{
		MaxVertices:            c.opts.MaxVertices,
		ReuseShapeTessellation: c.opts.ReuseShapeTessellation,
		Logger:                 log,
	}), log)
	root, meshes, walkWarnings := walker.Walk(doc, tol)
	warnings = append(warnings, walkWarnings...)

	res := Result{
		Success:  true,
		Meshes:   meshes,
		Root:     root,
		Warnings: warnings,
		RunID:    runID,
	}
	log.Info("conversion complete",
		zap.String("document", doc.Name),
		zap.Int("meshes", len(meshes)),
		zap.Int("triangles", res.TriangleCount()),
		zap.Int("warnings", len(warnings)))
	return res
}
