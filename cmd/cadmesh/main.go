// cadmesh converts CAD assembly documents into a node tree and a list of
// render-ready meshes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/cadscene/internal/config"
	"github.com/chazu/cadscene/internal/logger"
	"github.com/chazu/cadscene/pkg/scene"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	switch command {
	case "convert", "c":
		return cmdConvert(rest, stdout, stderr)
	case "info":
		return cmdInfo(rest, stdout, stderr)
	case "config":
		return cmdConfig(rest, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `cadmesh - convert CAD assemblies into render-ready meshes

Usage:
  cadmesh <command> [options]

Commands:
  convert [options] <file>      Convert a .yaml or .lasm assembly
  info [options] <file>         Show document structure and tolerances
  config [-o path]              Print or write the effective configuration

Convert options:
  -config path      Config file (default ./cadmesh.yaml)
  -params path      JSON tessellation options {"linearDeflection", "angularDeflection"}
  -linear x         Linear deflection
  -angular y        Angular deflection in radians
  -kernel name      auto, analytic or implicit
  -max-vertices n   Split meshes above n vertices
  -format f         json or cbor
  -indent           Indent JSON output
  -o path           Write the result to path instead of stdout

Examples:
  cadmesh convert examples/as1.yaml
  cadmesh convert -linear 0.5 -format cbor -o as1.cbor examples/as1.yaml
  cadmesh info examples/as1.lasm`)
}

// setup parses the shared flags and builds the config and logger.
func setup(name string, args []string, stderr io.Writer, extra func(*flag.FlagSet)) (*flag.FlagSet, *config.Config, *zap.Logger, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags config.Flags
	flags.Register(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, nil, nil, &loadError{err: err}
	}
	flags.Apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.NewWithFileConfig(cfg.Logging.Level, fileConfig(cfg), stderr)
	return fs, cfg, log, nil
}

func fileConfig(cfg *config.Config) logger.FileConfig {
	if cfg.Logging.LogFile == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(cfg.Logging.LogFile)
}

func cmdConvert(args []string, stdout, stderr io.Writer) int {
	var outPath, paramsPath string
	fs, cfg, log, err := setup("convert", args, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&outPath, "o", "", "Output file (default stdout)")
		fs.StringVar(&paramsPath, "params", "", "JSON tessellation options")
	})
	if err != nil {
		return setupError(stderr, err)
	}
	defer log.Sync()

	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: cadmesh convert [options] <file>")
		return 2
	}

	if paramsPath != "" {
		if err := applyParamsFile(fs, cfg, paramsPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	app := NewApp(cfg, log)
	res := app.Convert(fs.Arg(0))
	for _, w := range res.Warnings {
		log.Warn("conversion warning", zap.Stringer("warning", w))
	}

	if outPath != "" {
		err = app.WriteResultFile(outPath, &res)
	} else {
		err = app.WriteResult(stdout, &res)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if !res.Success {
		fmt.Fprintf(stderr, "Error: %s\n", res.Message)
		return 1
	}
	return 0
}

// applyParamsFile merges a JSON options object into cfg. Deflection flags
// given on the command line still win.
func applyParamsFile(fs *flag.FlagSet, cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p, err := scene.ParseParams(data)
	if err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if p.LinearDeflection.Present && !set["linear"] {
		cfg.Tessellation.LinearDeflection = p.LinearDeflection
	}
	if p.AngularDeflection.Present && !set["angular"] {
		cfg.Tessellation.AngularDeflection = p.AngularDeflection
	}
	return nil
}

func cmdInfo(args []string, stdout, stderr io.Writer) int {
	fs, cfg, log, err := setup("info", args, stderr, nil)
	if err != nil {
		return setupError(stderr, err)
	}
	defer log.Sync()

	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: cadmesh info [options] <file>")
		return 2
	}
	if err := NewApp(cfg, log).Info(stdout, fs.Arg(0)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdConfig(args []string, stdout, stderr io.Writer) int {
	var outPath string
	_, cfg, log, err := setup("config", args, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&outPath, "o", "", "Write the configuration to this file")
	})
	if err != nil {
		return setupError(stderr, err)
	}
	defer log.Sync()

	if outPath == "" {
		if err := writeYAML(stdout, cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	if err := cfg.SaveTo(outPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %s\n", outPath)
	return 0
}

// loadError marks a config file that could not be read or parsed. It exits
// with 1 like other I/O failures rather than as a usage error.
type loadError struct{ err error }

func (e *loadError) Error() string { return e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

func setupError(stderr io.Writer, err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var le *loadError
	if errors.As(err, &le) {
		return 1
	}
	return 2
}
