package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/cadscene/pkg/cad"
	"github.com/chazu/cadscene/pkg/kernel"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAngularDeflection is used when no usable angular deflection is
	// supplied, in radians.
	DefaultAngularDeflection = 0.5
	// LinearDeflectionFactor scales the bounding-box diagonal into the
	// default linear deflection.
	LinearDeflectionFactor = 0.001
	// MinLinearDeflection is the floor of the computed linear deflection.
	MinLinearDeflection = 1e-3
)

// OptionalFloat is a number that may be absent. Values that are present but
// unusable (non-numeric, NaN, infinite, or not strictly positive) decode
// without error and are later replaced by the default.
type OptionalFloat struct {
	Value   float64
	Present bool
}

// Float returns a present OptionalFloat.
func Float(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Present: true}
}

// Usable reports whether the value is present and strictly positive.
func (o OptionalFloat) Usable() bool {
	return o.Present && !math.IsNaN(o.Value) && !math.IsInf(o.Value, 0) && o.Value > 0
}

func (o OptionalFloat) String() string {
	if !o.Present {
		return "<unset>"
	}
	if math.IsNaN(o.Value) {
		return "<non-numeric>"
	}
	return strconv.FormatFloat(o.Value, 'g', -1, 64)
}

func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = OptionalFloat{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*o = Float(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = parseLenient(s)
		return nil
	}
	*o = Float(math.NaN())
	return nil
}

func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Usable() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *OptionalFloat) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*o = OptionalFloat{}
		return nil
	}
	var f float64
	if err := value.Decode(&f); err == nil {
		*o = Float(f)
		return nil
	}
	if value.Kind == yaml.ScalarNode {
		*o = parseLenient(value.Value)
		return nil
	}
	*o = Float(math.NaN())
	return nil
}

func (o OptionalFloat) MarshalYAML() (interface{}, error) {
	if !o.Usable() {
		return nil, nil
	}
	return o.Value, nil
}

func parseLenient(s string) OptionalFloat {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Float(math.NaN())
	}
	return Float(f)
}

// Params are the caller-supplied tessellation options.
type Params struct {
	LinearDeflection  OptionalFloat `json:"linearDeflection" yaml:"linear_deflection"`
	AngularDeflection OptionalFloat `json:"angularDeflection" yaml:"angular_deflection"`
}

// ParseParams decodes a JSON options object. Empty input yields zero Params.
func ParseParams(data []byte) (Params, error) {
	var p Params
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("parse params: %w", err)
	}
	return p, nil
}

// AutoLinearDeflection returns the default linear deflection for a
// document: a fixed fraction of its bounding-box diagonal, never below
// MinLinearDeflection.
func AutoLinearDeflection(doc *cad.Document) float64 {
	lin := LinearDeflectionFactor * cad.BoundingBoxDiagonal(doc)
	if !(lin >= MinLinearDeflection) {
		return MinLinearDeflection
	}
	return lin
}

// ResolveDeflection computes the tolerances for one conversion. Unusable
// supplied values fall back to the defaults and produce a configuration
// warning; absent values fall back silently.
func ResolveDeflection(doc *cad.Document, p Params) (kernel.Deflection, []Warning) {
	var warnings []Warning
	tol := kernel.Deflection{Angular: DefaultAngularDeflection}

	switch {
	case p.LinearDeflection.Usable():
		tol.Linear = p.LinearDeflection.Value
	default:
		if p.LinearDeflection.Present {
			warnings = append(warnings, configWarning("linearDeflection", p.LinearDeflection))
		}
		tol.Linear = AutoLinearDeflection(doc)
	}

	if p.AngularDeflection.Usable() {
		tol.Angular = p.AngularDeflection.Value
	} else if p.AngularDeflection.Present {
		warnings = append(warnings, configWarning("angularDeflection", p.AngularDeflection))
	}
	return tol, warnings
}

func configWarning(name string, v OptionalFloat) Warning {
	return Warning{
		Kind:    WarningConfiguration,
		Message: fmt.Sprintf("ignoring %s %s, using default", name, v),
	}
}
