package scene

import (
	"math"

	"github.com/chazu/cadscene/pkg/cad"
)

// FallbackColor is the stored color used when neither an occurrence nor any
// enclosing product node sets one. It decodes to 0.6038273572921753 per
// component.
var FallbackColor = cad.Color{R: 0.8, G: 0.8, B: 0.8}

// DecodeColor converts a stored sRGB-encoded color to linear RGB.
//
// Each component is clamped to [0,1] and rounded to single precision, run
// through the sRGB transfer function, and rounded to single precision again.
// Every color in the output (occurrence, face and fallback) goes through
// this function.
func DecodeColor(c cad.Color) RGB {
	return RGB{decodeComponent(c.R), decodeComponent(c.G), decodeComponent(c.B)}
}

func decodeComponent(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	c := float64(float32(v))
	var lin float64
	if c <= 0.04045 {
		lin = c / 12.92
	} else {
		lin = math.Pow((c+0.055)/1.055, 2.4)
	}
	return float64(float32(lin))
}

// InheritColor applies the precedence rule "own color, else inherited".
// The result is nil when neither is set.
func InheritColor(own, inherited *cad.Color) *cad.Color {
	if own != nil {
		return own
	}
	return inherited
}

// ResolveOccurrenceColor returns the decoded color of an occurrence: its own
// color, else the color inherited from the enclosing product nodes, else
// FallbackColor.
func ResolveOccurrenceColor(own, inherited *cad.Color) RGB {
	if c := InheritColor(own, inherited); c != nil {
		return DecodeColor(*c)
	}
	return DecodeColor(FallbackColor)
}

// ResolveFaceColor returns the decoded face override, or the occurrence
// color when the face has none.
func ResolveFaceColor(face *cad.Color, occurrence RGB) RGB {
	if face != nil {
		return DecodeColor(*face)
	}
	return occurrence
}
