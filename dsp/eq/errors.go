package eq

import "errors"

var (
	// ErrNil indicates a nil engine or preset was passed.
	ErrNil = errors.New("eq: nil argument")
	// ErrInvalidParam indicates a parameter outside its documented range,
	// or a non-finite value.
	ErrInvalidParam = errors.New("eq: invalid parameter")
	// ErrInvalidState indicates an operation not valid in the current state.
	ErrInvalidState = errors.New("eq: invalid state")
	// ErrUnsupported indicates a feature this build does not provide.
	ErrUnsupported = errors.New("eq: unsupported")
)
