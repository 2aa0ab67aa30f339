package engine

import "errors"

// ErrInvalidExercise is returned when a caller asks for an unsupported
// exercise type. No session state is mutated when it is returned.
var ErrInvalidExercise = errors.New("invalid exercise type")
