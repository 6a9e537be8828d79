// Package codec serializes conversion results as JSON or CBOR.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/cadscene/pkg/scene"
	"github.com/fxamacker/cbor/v2"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or cbor)", s)
	}
}

// Extension returns the conventional file extension for f.
func (f Format) Extension() string {
	return "." + string(f)
}

// encMode is the CBOR encoder mode for results.
// Deterministic: the same result always encodes to the same bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for results.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// wireResult is the encoded shape of a scene.Result. A successful result
// always carries the meshes array, empty or not; a failure carries only
// success and message.
type wireResult struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Meshes   *[]*scene.Mesh `json:"meshes,omitempty"`
	Root     *scene.Node    `json:"root,omitempty"`
	Warnings []wireWarning  `json:"warnings,omitempty"`
}

// wireWarning omits the face index unless the warning names a face.
type wireWarning struct {
	Kind    scene.WarningKind `json:"kind"`
	Shape   string            `json:"shape,omitempty"`
	Face    *int              `json:"face,omitempty"`
	Message string            `json:"message"`
}

func toWire(r *scene.Result) *wireResult {
	w := &wireResult{Success: r.Success, Message: r.Message}
	if !r.Success {
		return w
	}
	meshes := r.Meshes
	if meshes == nil {
		meshes = []*scene.Mesh{}
	}
	w.Meshes = &meshes
	w.Root = r.Root
	for _, wr := range r.Warnings {
		ww := wireWarning{Kind: wr.Kind, Shape: wr.Shape, Message: wr.Message}
		if wr.Kind == scene.WarningTessellation {
			face := wr.Face
			ww.Face = &face
		}
		w.Warnings = append(w.Warnings, ww)
	}
	return w
}

// Marshal encodes a result. indent only affects JSON.
func Marshal(r *scene.Result, f Format, indent bool) ([]byte, error) {
	w := toWire(r)
	switch f {
	case FormatJSON:
		if indent {
			return json.MarshalIndent(w, "", "  ")
		}
		return json.Marshal(w)
	case FormatCBOR:
		return encMode.Marshal(w)
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

// Encode writes an encoded result to w. JSON output ends with a newline.
func Encode(w io.Writer, r *scene.Result, f Format, indent bool) error {
	data, err := Marshal(r, f, indent)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	if f == FormatJSON {
		data = append(data, '\n')
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", f, err)
	}
	return nil
}

// Decode parses an encoded result.
func Decode(data []byte, f Format) (*scene.Result, error) {
	var r scene.Result
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("failed to decode json result: %w", err)
		}
	case FormatCBOR:
		if err := decMode.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode cbor result: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
	return &r, nil
}
