package cad

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hasError returns true if findings contains a blocking entry whose Message
// contains substr.
func hasError(findings []ValidationError, substr string) bool {
	for _, e := range Errors(findings) {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func validDoc() *Document {
	d := New("doc")
	d.AddShape(Box("b", "b", 1, 1, 1))
	d.AddNode(&ProductNode{ID: "part", Name: "part", Occurrences: []Occurrence{{Shape: "b"}}})
	d.AddNode(&ProductNode{ID: "asm", Name: "asm", Children: []Component{{Node: "part"}, {Node: "part"}}})
	d.AddRoot("asm")
	return d
}

func TestValidateValidDocument(t *testing.T) {
	assert.Empty(t, Validate(validDoc()))
}

func TestValidateNoRoots(t *testing.T) {
	d := New("doc")
	assert.True(t, hasError(Validate(d), "no root"))
}

func TestValidateMissingRoot(t *testing.T) {
	d := validDoc()
	d.AddRoot("ghost")
	assert.True(t, hasError(Validate(d), "missing product node"))
}

func TestValidateDanglingReferences(t *testing.T) {
	d := validDoc()
	d.AddNode(&ProductNode{
		ID:          "bad",
		Name:        "bad",
		Occurrences: []Occurrence{{Shape: "nope"}},
		Children:    []Component{{Node: "nobody"}},
	})
	findings := Validate(d)
	assert.True(t, hasError(findings, `missing shape "nope"`))
	assert.True(t, hasError(findings, `missing product node "nobody"`))
}

func TestValidateCycle(t *testing.T) {
	d := New("doc")
	d.AddNode(&ProductNode{ID: "a", Name: "a", Children: []Component{{Node: "b"}}})
	d.AddNode(&ProductNode{ID: "b", Name: "b", Children: []Component{{Node: "c"}}})
	d.AddNode(&ProductNode{ID: "c", Name: "c", Children: []Component{{Node: "a"}}})
	d.AddRoot("a")

	findings := Validate(d)
	require.True(t, hasError(findings, "cycle detected"))
}

func TestValidateSelfReference(t *testing.T) {
	d := New("doc")
	d.AddNode(&ProductNode{ID: "a", Name: "a", Children: []Component{{Node: "a"}}})
	d.AddRoot("a")
	assert.True(t, hasError(Validate(d), "cycle detected"))
}

func TestValidateSharedSubassemblyIsNotACycle(t *testing.T) {
	// Diamond: top -> left, right; left -> leaf; right -> leaf.
	d := New("doc")
	d.AddNode(&ProductNode{ID: "leaf", Name: "leaf"})
	d.AddNode(&ProductNode{ID: "left", Name: "left", Children: []Component{{Node: "leaf"}}})
	d.AddNode(&ProductNode{ID: "right", Name: "right", Children: []Component{{Node: "leaf"}}})
	d.AddNode(&ProductNode{ID: "top", Name: "top", Children: []Component{{Node: "left"}, {Node: "right"}}})
	d.AddRoot("top")
	assert.Empty(t, Errors(Validate(d)))
}

func TestValidateDeepChain(t *testing.T) {
	const depth = 20000
	d := New("deep")
	for i := 0; i < depth; i++ {
		n := &ProductNode{ID: NodeID(fmt.Sprintf("n%d", i)), Name: "n"}
		if i+1 < depth {
			n.Children = []Component{{Node: NodeID(fmt.Sprintf("n%d", i+1))}}
		}
		d.AddNode(n)
	}
	d.AddRoot("n0")
	assert.Empty(t, Errors(Validate(d)))
}

func TestValidateUnnamedNodeIsWarning(t *testing.T) {
	d := validDoc()
	d.AddNode(&ProductNode{ID: "anon"})
	findings := Validate(d)
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Empty(t, Errors(findings))
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{NodeID: "x", Message: "boom", Severity: SeverityError}
	assert.Equal(t, "[error] node x: boom", e.Error())
	e = ValidationError{Message: "doc", Severity: SeverityWarning}
	assert.Equal(t, "[warning] doc", e.Error())
}

func TestLoadErrorUnwrap(t *testing.T) {
	err := &LoadError{Format: "yaml", Line: 3, Err: ErrEmptyInput}
	assert.True(t, errors.Is(err, ErrEmptyInput))
	assert.Equal(t, "load yaml: line 3: empty input", err.Error())
}

// chain builds n nested nodes c0 -> c1 -> ..., declaring c1 before c0.
func chain(n int) *Document {
	d := New("chain")
	id := func(i int) NodeID { return NodeID(fmt.Sprintf("c%d", i)) }
	link := func(i int) *ProductNode {
		nd := &ProductNode{ID: id(i), Name: "c"}
		if i+1 < n {
			nd.Children = []Component{{Node: id(i + 1)}}
		}
		return nd
	}
	d.AddNode(link(1))
	d.AddNode(link(0))
	for i := 2; i < n; i++ {
		d.AddNode(link(i))
	}
	d.AddRoot("c0")
	return d
}

func TestValidateDepthIgnoresDeclarationOrder(t *testing.T) {
	assert.Empty(t, Errors(Validate(chain(MaxDepth+1))), "MaxDepth edges below the root is allowed")
	assert.True(t, hasError(Validate(chain(MaxDepth+2)), "deeper than"))
}

func TestValidateNodesAddedToMapDirectly(t *testing.T) {
	d := New("direct")
	d.Nodes["a"] = &ProductNode{ID: "a", Name: "a", Children: []Component{{Node: "b"}}}
	d.Nodes["b"] = &ProductNode{ID: "b", Name: "b", Children: []Component{{Node: "a"}}}
	d.AddRoot("a")
	assert.True(t, hasError(Validate(d), "cycle detected"))

	d = New("direct")
	d.Nodes["a"] = &ProductNode{ID: "a", Name: "a", Occurrences: []Occurrence{{Shape: "nope"}}}
	d.AddRoot("a")
	assert.True(t, hasError(Validate(d), `missing shape "nope"`))
}
