package surface

import "errors"

var (
	// ErrInvalidStride indicates a grid stride below one pixel.
	ErrInvalidStride = errors.New("surface: stride must be at least 1")
	// ErrInvalidSize indicates a negative image dimension.
	ErrInvalidSize = errors.New("surface: width and height must not be negative")
	// ErrInvalidK indicates k outside [1, number of points].
	ErrInvalidK = errors.New("surface: k out of range")
	// ErrMissingColor indicates a category without a color map entry.
	ErrMissingColor = errors.New("surface: category has no color")
	// ErrBadColor indicates a color string that is not #rrggbb.
	ErrBadColor = errors.New("surface: malformed color")
)
