package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/cadscene/pkg/codec"
	"github.com/chazu/cadscene/pkg/kernel"
	"github.com/chazu/cadscene/pkg/kernel/analytic"
	"github.com/chazu/cadscene/pkg/kernel/sdfx"
	"github.com/chazu/cadscene/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.Tessellation.LinearDeflection.Present, "linear deflection is derived from the document")
	assert.False(t, cfg.Tessellation.AngularDeflection.Present)
	assert.Equal(t, KernelAuto, cfg.Tessellation.Kernel)
	assert.True(t, cfg.Tessellation.ReuseShapes)
	assert.Equal(t, analytic.DefaultMaxSegments, cfg.Tessellation.MaxSegments)
	assert.Equal(t, sdfx.DefaultMaxCells, cfg.Tessellation.MaxCells)
	assert.Zero(t, cfg.Mesh.MaxVertices)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadmesh.yaml")
	content := `
tessellation:
  linear_deflection: 10
  angular_deflection: "0.25"
  kernel: analytic
  reuse_shapes: false
mesh:
  max_vertices: 65535
output:
  format: cbor
logging:
  level: debug
  log_file: /tmp/cadmesh.log
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, scene.Float(10), cfg.Tessellation.LinearDeflection)
	assert.Equal(t, scene.Float(0.25), cfg.Tessellation.AngularDeflection)
	assert.Equal(t, KernelAnalytic, cfg.Tessellation.Kernel)
	assert.False(t, cfg.Tessellation.ReuseShapes)
	assert.Equal(t, sdfx.DefaultMaxCells, cfg.Tessellation.MaxCells, "unset keys keep their defaults")
	assert.Equal(t, 65535, cfg.Mesh.MaxVertices)
	assert.Equal(t, codec.FormatCBOR, cfg.OutputFormat())
	assert.Equal(t, "/tmp/cadmesh.log", cfg.Logging.LogFile)

	p := cfg.Params()
	assert.Equal(t, scene.Float(10), p.LinearDeflection)
	opts := cfg.ConverterOptions(zap.NewNop())
	assert.Equal(t, 65535, opts.MaxVertices)
	assert.False(t, opts.ReuseShapeTessellation)
}

func TestLoadNonNumericDeflectionIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tessellation:\n  linear_deflection: fine\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Tessellation.LinearDeflection.Present)
	assert.False(t, cfg.Tessellation.LinearDeflection.Usable(), "resolved to the default later, with a warning")
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mesh: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"kernel", func(c *Config) { c.Tessellation.Kernel = "nurbs" }, "tessellation.kernel"},
		{"segments", func(c *Config) { c.Tessellation.MaxSegments = -1 }, "max_segments"},
		{"cells", func(c *Config) { c.Tessellation.MaxCells = -1 }, "max_cells"},
		{"vertices", func(c *Config) { c.Mesh.MaxVertices = -3 }, "max_vertices"},
		{"format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplyFlags(t *testing.T) {
	var f Flags
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	f.Register(fs)
	require.NoError(t, fs.Parse([]string{
		"-linear", "0", "-kernel", "implicit", "-max-vertices", "100",
		"-no-reuse", "-format", "cbor", "-indent", "-debug", "-log-file", "x.log",
	}))

	cfg := Default()
	f.Apply(fs, cfg)

	assert.Equal(t, scene.Float(0), cfg.Tessellation.LinearDeflection, "explicit zero is passed through")
	assert.False(t, cfg.Tessellation.AngularDeflection.Present, "unset flags do not override")
	assert.Equal(t, KernelImplicit, cfg.Tessellation.Kernel)
	assert.Equal(t, 100, cfg.Mesh.MaxVertices)
	assert.False(t, cfg.Tessellation.ReuseShapes)
	assert.Equal(t, "cbor", cfg.Output.Format)
	assert.True(t, cfg.Output.Indent)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "x.log", cfg.Logging.LogFile)
}

func TestLoadPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tessellation:\n  linear_deflection: 5\n  angular_deflection: 1\n"), 0o644))

	var f Flags
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	f.Register(fs)
	require.NoError(t, fs.Parse([]string{"-config", path, "-linear", "2"}))

	cfg, err := Load(f.ConfigPath)
	require.NoError(t, err)
	f.Apply(fs, cfg)

	assert.Equal(t, scene.Float(2), cfg.Tessellation.LinearDeflection, "flag beats file")
	assert.Equal(t, scene.Float(1), cfg.Tessellation.AngularDeflection, "file beats default")
}

func TestTessellator(t *testing.T) {
	cfg := Default()
	assert.IsType(t, kernel.Chain{}, cfg.Tessellator())

	cfg.Tessellation.Kernel = KernelAnalytic
	assert.IsType(t, &analytic.Kernel{}, cfg.Tessellator())

	cfg.Tessellation.Kernel = KernelImplicit
	assert.IsType(t, &sdfx.Kernel{}, cfg.Tessellator())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cadmesh.yaml")
	cfg := Default()
	cfg.Tessellation.LinearDeflection = scene.Float(3)
	cfg.Mesh.MaxVertices = 42
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir := ConfigDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, "cadmesh")
}
