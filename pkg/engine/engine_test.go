package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/cadscene/pkg/cad"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	for _, src := range []string{"", "   \n\t  \n  "} {
		doc, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if doc == nil {
			t.Fatal("expected non-nil document")
		}
		if doc.NodeCount() != 0 || doc.ShapeCount() != 0 {
			t.Errorf("expected empty document, got %d nodes, %d shapes", doc.NodeCount(), doc.ShapeCount())
		}
	}
}

func TestEvaluatePlainLisp(t *testing.T) {
	eng := NewEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	doc, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if doc.NodeCount() != 0 {
		t.Errorf("expected no nodes, got %d", doc.NodeCount())
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	doc, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if doc != nil {
		t.Fatal("expected nil document on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	doc, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if doc != nil {
		t.Fatal("expected nil document on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q, want line and message", s)
	}

	e2 := EvalError{Message: "no location"}
	if s := e2.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s)
	}
}

func TestLoadEmptyInput(t *testing.T) {
	_, err := NewEngine().Load([]byte(" \n "))
	if !errors.Is(err, cad.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestLoadWrapsEvalErrors(t *testing.T) {
	_, err := NewEngine().Load([]byte(`(defshape "a")`))
	if err == nil {
		t.Fatal("expected error")
	}
	var le *cad.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *cad.LoadError, got %T", err)
	}
	if le.Format != FormatName {
		t.Errorf("format = %q, want %q", le.Format, FormatName)
	}
	if !strings.Contains(err.Error(), "no faces") {
		t.Errorf("error %q should mention the missing faces", err)
	}
}

func TestLoadFileNamesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.lasm")
	src := `(box-shape "cube" :size (vec3 1 1 1))
(part "p" (occurrence "cube"))`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := NewEngine().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.Name != "widget" {
		t.Errorf("name = %q, want widget", doc.Name)
	}

	_, err = NewEngine().LoadFile(filepath.Join(t.TempDir(), "missing.lasm"))
	var le *cad.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *cad.LoadError for a missing file, got %v", err)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	src := `(box-shape "cube" :size (vec3 1 2 3))
(part "a" (occurrence "cube" :at (vec3 1 0 0)))
(part "b" (occurrence "cube"))
(assembly "top" (instance "a") (instance "b" :rotate (vec3 0 0 90)))`

	var first []cad.NodeID
	for i := 0; i < 5; i++ {
		doc, evalErrs, err := eng.Evaluate(src)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("iteration %d: err=%v evalErrs=%v", i, err, evalErrs)
		}
		if i == 0 {
			first = doc.NodeIDs()
			continue
		}
		got := doc.NodeIDs()
		if strings.Join(ids(got), ",") != strings.Join(ids(first), ",") {
			t.Errorf("iteration %d: node order %v, want %v", i, got, first)
		}
	}
}

func ids(xs []cad.NodeID) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}

func TestWaitTimesOut(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := waitFor(ch, 1, &mu, &gen, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if time.Since(start) > EvalTimeout {
		t.Error("waitFor ignored its limit")
	}
}

func TestWaitDiscardsStaleGeneration(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{doc: cad.New("stale")}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 3: bad vec3", 3, "bad vec3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}
