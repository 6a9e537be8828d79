// Package config handles cadmesh configuration loading and management.
package config

import (
	"fmt"

	"github.com/chazu/cadscene/internal/logger"
	"github.com/chazu/cadscene/pkg/codec"
	"github.com/chazu/cadscene/pkg/kernel"
	"github.com/chazu/cadscene/pkg/kernel/analytic"
	"github.com/chazu/cadscene/pkg/kernel/sdfx"
	"github.com/chazu/cadscene/pkg/scene"
	"go.uber.org/zap"
)

// Tessellation kernels.
const (
	KernelAuto     = "auto"     // analytic, falling back to marching cubes
	KernelAnalytic = "analytic" // analytic surfaces only
	KernelImplicit = "implicit" // implicit primitives only
)

// Config holds all cadmesh settings.
type Config struct {
	Tessellation TessellationConfig `yaml:"tessellation"`
	Mesh         MeshConfig         `yaml:"mesh"`
	Output       OutputConfig       `yaml:"output"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// TessellationConfig holds deflection and kernel settings. Unset deflections
// are derived from the document.
type TessellationConfig struct {
	LinearDeflection  scene.OptionalFloat `yaml:"linear_deflection"`
	AngularDeflection scene.OptionalFloat `yaml:"angular_deflection"`
	Kernel            string              `yaml:"kernel"`
	ReuseShapes       bool                `yaml:"reuse_shapes"`
	MaxSegments       int                 `yaml:"max_segments"` // analytic arc cap
	MaxCells          int                 `yaml:"max_cells"`    // marching cubes cap
}

// MeshConfig holds mesh assembly settings.
type MeshConfig struct {
	MaxVertices int `yaml:"max_vertices"` // 0 = unlimited
}

// OutputConfig holds result encoding settings.
type OutputConfig struct {
	Format string `yaml:"format"`
	Indent bool   `yaml:"indent"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Tessellation: TessellationConfig{
			Kernel:      KernelAuto,
			ReuseShapes: true,
			MaxSegments: analytic.DefaultMaxSegments,
			MaxCells:    sdfx.DefaultMaxCells,
		},
		Output: OutputConfig{
			Format: string(codec.FormatJSON),
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Validate rejects settings no component can honor. Deflections are not
// checked here; unusable values fall back to their defaults with a warning.
func (c *Config) Validate() error {
	switch c.Tessellation.Kernel {
	case KernelAuto, KernelAnalytic, KernelImplicit:
	default:
		return fmt.Errorf("tessellation.kernel: unknown kernel %q (want auto, analytic or implicit)", c.Tessellation.Kernel)
	}
	if c.Tessellation.MaxSegments < 0 {
		return fmt.Errorf("tessellation.max_segments: must not be negative, got %d", c.Tessellation.MaxSegments)
	}
	if c.Tessellation.MaxCells < 0 {
		return fmt.Errorf("tessellation.max_cells: must not be negative, got %d", c.Tessellation.MaxCells)
	}
	if c.Mesh.MaxVertices < 0 {
		return fmt.Errorf("mesh.max_vertices: must not be negative, got %d", c.Mesh.MaxVertices)
	}
	if _, err := codec.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

// Params returns the deflection parameters for a conversion.
func (c *Config) Params() scene.Params {
	return scene.Params{
		LinearDeflection:  c.Tessellation.LinearDeflection,
		AngularDeflection: c.Tessellation.AngularDeflection,
	}
}

// ConverterOptions returns the scene options for a conversion.
func (c *Config) ConverterOptions(log *zap.Logger) scene.Options {
	return scene.Options{
		MaxVertices:            c.Mesh.MaxVertices,
		ReuseShapeTessellation: c.Tessellation.ReuseShapes,
		Logger:                 log,
	}
}

// Tessellator builds the configured kernel.
func (c *Config) Tessellator() kernel.Tessellator {
	a := analytic.NewWithMaxSegments(c.Tessellation.MaxSegments)
	s := sdfx.NewWithMaxCells(c.Tessellation.MaxCells)
	switch c.Tessellation.Kernel {
	case KernelAnalytic:
		return a
	case KernelImplicit:
		return s
	}
	return kernel.Chain{a, s}
}

// OutputFormat returns the parsed output format.
func (c *Config) OutputFormat() codec.Format {
	f, err := codec.ParseFormat(c.Output.Format)
	if err != nil {
		return codec.FormatJSON
	}
	return f
}
