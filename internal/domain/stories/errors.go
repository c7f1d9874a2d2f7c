package stories

import (
	"errors"
	"fmt"
)

// ErrNotFound covers both "absent" and "owned by someone else".
var ErrNotFound = errors.New("not found")

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Invalid(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
