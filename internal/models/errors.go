package models

import "errors"

// Error kinds surfaced by calibration and prediction. Callers wrap them with
// context and match with errors.Is.
var (
	// ErrUnknownStandard is returned when a name was never registered.
	ErrUnknownStandard = errors.New("unknown standard")
	// ErrUnknownMethod is returned for an interpolation method outside linear, cubic, spline.
	ErrUnknownMethod = errors.New("unknown interpolation method")
	// ErrInsufficientPoints is returned when a method needs more standard points than given.
	ErrInsufficientPoints = errors.New("insufficient standard points")
	// ErrInvalidInput covers mismatched lengths, empty arrays and non-finite values.
	ErrInvalidInput = errors.New("invalid input")
)
