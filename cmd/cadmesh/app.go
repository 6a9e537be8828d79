package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chazu/cadscene/internal/config"
	"github.com/chazu/cadscene/pkg/cad"
	"github.com/chazu/cadscene/pkg/codec"
	"github.com/chazu/cadscene/pkg/engine"
	"github.com/chazu/cadscene/pkg/format/yamlasm"
	"github.com/chazu/cadscene/pkg/scene"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// App wires the loaders, the converter and the codec for one invocation.
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	converter *scene.Converter
	loaders   map[string]fileLoader
}

// fileLoader is implemented by both document loaders.
type fileLoader interface {
	scene.Loader
	LoadFile(path string) (*cad.Document, error)
}

// NewApp creates an App for cfg.
func NewApp(cfg *config.Config, log *zap.Logger) *App {
	yl := yamlasm.New()
	lisp := engine.NewEngine()
	return &App{
		cfg:       cfg,
		log:       log,
		converter: scene.NewConverter(cfg.Tessellator(), cfg.ConverterOptions(log)),
		loaders: map[string]fileLoader{
			".yaml": yl,
			".yml":  yl,
			".lasm": lisp,
			".lisp": lisp,
		},
	}
}

// LoaderFor picks the loader for path by extension.
func (a *App) LoaderFor(path string) (fileLoader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := a.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q (want .yaml, .yml, .lasm or .lisp)", ext)
	}
	return l, nil
}

// Convert reads and converts the document at path. Every failure, including
// an unreadable file, is reported inside the Result.
func (a *App) Convert(path string) scene.Result {
	loader, err := a.LoaderFor(path)
	if err != nil {
		return scene.Result{Message: err.Error()}
	}
	doc, err := loader.LoadFile(path)
	if err != nil {
		a.log.Error("load failed", zap.String("path", path), zap.Error(err))
		return scene.Result{Message: err.Error()}
	}
	return a.converter.Assemble(doc, a.cfg.Params())
}

// WriteResult encodes r to w in the configured format.
func (a *App) WriteResult(w io.Writer, r *scene.Result) error {
	return codec.Encode(w, r, a.cfg.OutputFormat(), a.cfg.Output.Indent)
}

// WriteResultFile encodes r to path.
func (a *App) WriteResultFile(path string, r *scene.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.WriteResult(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Info writes a summary of the document at path: counts, tolerances,
// validation findings and the product tree.
func (a *App) Info(w io.Writer, path string) error {
	loader, err := a.LoaderFor(path)
	if err != nil {
		return err
	}
	doc, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	tol, warnings := scene.ResolveDeflection(doc, a.cfg.Params())

	fmt.Fprintf(w, "Document: %s\n", doc.Name)
	fmt.Fprintf(w, "Shapes:   %d\n", doc.ShapeCount())
	fmt.Fprintf(w, "Nodes:    %d\n", doc.NodeCount())
	fmt.Fprintf(w, "Roots:    %d\n", len(doc.Roots))
	fmt.Fprintf(w, "Diagonal: %g\n", cad.BoundingBoxDiagonal(doc))
	fmt.Fprintf(w, "Linear:   %g\n", tol.Linear)
	fmt.Fprintf(w, "Angular:  %g\n", tol.Angular)
	for _, wr := range warnings {
		fmt.Fprintf(w, "Warning:  %s\n", wr)
	}

	if findings := cad.Validate(doc); len(findings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Validation:")
		for _, f := range findings {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Shapes by face count:")
	ids := make([]string, 0, doc.ShapeCount())
	for id := range doc.Shapes {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := doc.Shape(cad.ShapeID(id))
		fmt.Fprintf(w, "  %-20s %d\n", id, len(s.Faces))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tree:")
	for _, r := range doc.Roots {
		printTree(w, doc, r, 1, map[cad.NodeID]bool{})
	}
	return nil
}

// printTree prints the product structure under id, stopping at cycles.
func printTree(w io.Writer, doc *cad.Document, id cad.NodeID, depth int, onPath map[cad.NodeID]bool) {
	indent := strings.Repeat("  ", depth)
	node := doc.Node(id)
	if node == nil {
		fmt.Fprintf(w, "%s%s (missing)\n", indent, id)
		return
	}
	if onPath[id] {
		fmt.Fprintf(w, "%s%s (cycle)\n", indent, id)
		return
	}
	onPath[id] = true
	defer delete(onPath, id)

	fmt.Fprintf(w, "%s%s\n", indent, displayName(node))
	for _, occ := range node.Occurrences {
		name := occ.Name
		if name == "" {
			name = string(occ.Shape)
		}
		fmt.Fprintf(w, "%s  - %s\n", indent, name)
	}
	for _, c := range node.Children {
		printTree(w, doc, c.Node, depth+1, onPath)
	}
}

func displayName(n *cad.ProductNode) string {
	if n.Name != "" && n.Name != string(n.ID) {
		return fmt.Sprintf("%s [%s]", n.Name, n.ID)
	}
	return string(n.ID)
}

// writeYAML writes cfg as YAML.
func writeYAML(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
