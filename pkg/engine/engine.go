// Package engine loads assembly scripts written in a small Lisp. It wraps
// zygomys in a sandboxed environment and produces a cad.Document from user
// source code.
//
//	(defshape "rod" :name "Rod"
//	  (cylinder :radius 5 :height 100)
//	  (planar (vec3 0 0 0) (vec3 5 0 0) (vec3 0 5 0)))
//	(box-shape "plate" :size (vec3 200 200 10) :face-colors (list :top (rgb 1 0 0)))
//	(part "plate-part" :name "plate" (occurrence "plate"))
//	(assembly "as1" (instance "plate-part") (instance "rod-part" :at (vec3 0 0 10)))
//	(root "as1")
//
// Angles are in degrees. Without a root form, every node that no other node
// references becomes a root.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/cadscene/pkg/cad"
	zygo "github.com/glycerine/zygomys/zygo"
)

// FormatName is reported in load errors.
const FormatName = "lisp"

// EvalError is a parse or runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates assembly scripts. It is safe for concurrent use; each call
// to Evaluate creates a fresh sandbox.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs source and returns the document it builds.
//
// Return semantics:
//   - On success: document + nil errors + nil error
//   - On parse/eval failure: nil document + eval errors + nil error
//   - On fatal failure (timeout, panic): nil + nil + error
func (e *Engine) Evaluate(source string) (*cad.Document, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		doc, evalErrs, err := e.evaluate(source)
		ch <- evalResult{doc: doc, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// Load implements scene.Loader. All failures are *cad.LoadError.
func (e *Engine) Load(data []byte) (*cad.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &cad.LoadError{Format: FormatName, Err: cad.ErrEmptyInput}
	}
	doc, evalErrs, err := e.Evaluate(string(data))
	if err != nil {
		return nil, &cad.LoadError{Format: FormatName, Err: err}
	}
	if len(evalErrs) > 0 {
		first := evalErrs[0]
		return nil, &cad.LoadError{Format: FormatName, Line: first.Line, Err: errors.New(first.Message)}
	}
	return doc, nil
}

// LoadFile reads and evaluates the script at path. The document is named
// after the file.
func (e *Engine) LoadFile(path string) (*cad.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &cad.LoadError{Format: FormatName, Err: err}
	}
	doc, err := e.Load(data)
	if err != nil {
		return nil, err
	}
	doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return doc, nil
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*cad.Document, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return cad.New(""), nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return b.finish(), nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values, pulling
// the line number out of the message when there is one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
