package config

import (
	"flag"

	"github.com/chazu/cadscene/pkg/scene"
)

// Flags are the command-line overrides shared by the subcommands.
type Flags struct {
	ConfigPath  string
	Linear      float64
	Angular     float64
	Kernel      string
	MaxVertices int
	NoReuse     bool
	Format      string
	Indent      bool
	Debug       bool
	LogFile     string
}

// Register defines the flags on fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.Float64Var(&f.Linear, "linear", 0, "Linear deflection (default: 0.1% of the bounding box diagonal)")
	fs.Float64Var(&f.Angular, "angular", 0, "Angular deflection in radians (default 0.5)")
	fs.StringVar(&f.Kernel, "kernel", "", "Tessellation kernel: auto, analytic or implicit")
	fs.IntVar(&f.MaxVertices, "max-vertices", 0, "Split meshes above this many vertices")
	fs.BoolVar(&f.NoReuse, "no-reuse", false, "Tessellate shared shapes once per occurrence")
	fs.StringVar(&f.Format, "format", "", "Output format: json or cbor")
	fs.BoolVar(&f.Indent, "indent", false, "Indent JSON output")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also log to this file, with rotation")
}

// Apply applies the flags that were set on fs to cfg. Only explicitly given
// flags override, so a deflection of -linear 0 still reaches the resolver
// and is reported there.
func (f *Flags) Apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "linear":
			cfg.Tessellation.LinearDeflection = scene.Float(f.Linear)
		case "angular":
			cfg.Tessellation.AngularDeflection = scene.Float(f.Angular)
		case "kernel":
			cfg.Tessellation.Kernel = f.Kernel
		case "max-vertices":
			cfg.Mesh.MaxVertices = f.MaxVertices
		case "no-reuse":
			cfg.Tessellation.ReuseShapes = !f.NoReuse
		case "format":
			cfg.Output.Format = f.Format
		case "indent":
			cfg.Output.Indent = f.Indent
		case "debug":
			if f.Debug {
				cfg.Logging.Level = "debug"
			}
		case "log-file":
			cfg.Logging.LogFile = f.LogFile
		}
	})
}
