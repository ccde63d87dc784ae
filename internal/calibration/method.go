package calibration

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/labcal/internal/models"
)

// Method selects the interpolation strategy of a calibration curve.
type Method int

const (
	// MethodLinear is piecewise-linear interpolation with slope extension outside the domain.
	MethodLinear Method = iota
	// MethodCubic is a not-a-knot piecewise cubic through every standard point.
	MethodCubic
	// MethodSpline is an interpolating cubic spline with zero smoothing.
	MethodSpline
)

// DefaultMethod is used when a prediction needs a curve that was never built.
const DefaultMethod = MethodLinear

var methodNames = map[Method]string{
	MethodLinear: "linear",
	MethodCubic:  "cubic",
	MethodSpline: "spline",
}

// minPoints is the smallest standard each method accepts.
var minPoints = map[Method]int{
	MethodLinear: 2,
	MethodCubic:  4,
	MethodSpline: 4,
}

// String returns the string representation of the method.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// MinPoints returns the minimum number of standard points the method needs.
func (m Method) MinPoints() int {
	return minPoints[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", models.ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod maps a method name to a Method. Matching is case-insensitive.
// Unknown names return an error wrapping models.ErrUnknownMethod.
func ParseMethod(name string) (Method, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for m, n := range methodNames {
		if n == want {
			return m, nil
		}
	}
	return Method(-1), fmt.Errorf("%w: %q (want linear, cubic or spline)", models.ErrUnknownMethod, name)
}

// Methods lists the supported methods in declaration order.
func Methods() []Method {
	return []Method{MethodLinear, MethodCubic, MethodSpline}
}
