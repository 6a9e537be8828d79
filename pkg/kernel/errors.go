package kernel

import (
	"errors"
	"fmt"

	"github.com/chazu/cadscene/pkg/cad"
)

var (
	// ErrUnsupportedSurface means the tessellator cannot handle the face's
	// surface type. Chain treats it as "try the next backend".
	ErrUnsupportedSurface = errors.New("unsupported surface type")
	// ErrDegenerateFace means the face geometry cannot be triangulated.
	ErrDegenerateFace = errors.New("degenerate face geometry")
	// ErrInvalidDeflection means the tolerances are not strictly positive.
	ErrInvalidDeflection = errors.New("invalid deflection")
)

// TessellationError reports a face that could not be triangulated. It is
// never fatal to a conversion.
type TessellationError struct {
	Surface cad.SurfaceKind
	Err     error
}

func (e *TessellationError) Error() string {
	return fmt.Sprintf("tessellate %s face: %v", e.Surface, e.Err)
}

func (e *TessellationError) Unwrap() error {
	return e.Err
}

// Degenerate builds a TessellationError wrapping ErrDegenerateFace.
func Degenerate(kind cad.SurfaceKind, format string, args ...any) error {
	return &TessellationError{
		Surface: kind,
		Err:     fmt.Errorf("%w: %s", ErrDegenerateFace, fmt.Sprintf(format, args...)),
	}
}

// Unsupported builds a TessellationError wrapping ErrUnsupportedSurface.
func Unsupported(face *cad.Face) error {
	kind := cad.SurfaceUnknown
	if face != nil && face.Surface != nil {
		kind = face.Surface.Kind()
	}
	return &TessellationError{Surface: kind, Err: ErrUnsupportedSurface}
}

// InvalidDeflection builds a TessellationError wrapping ErrInvalidDeflection.
func InvalidDeflection(kind cad.SurfaceKind, tol Deflection) error {
	return &TessellationError{
		Surface: kind,
		Err:     fmt.Errorf("%w: linear=%g angular=%g", ErrInvalidDeflection, tol.Linear, tol.Angular),
	}
}
