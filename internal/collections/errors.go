package collections

import (
	"errors"
	"fmt"
)

// ErrUnsuccessful is returned when a collection answers with success=false.
var ErrUnsuccessful = errors.New("collection reported failure")

// ErrStatus matches every *StatusError through errors.Is.
var ErrStatus = errors.New("collection returned non-2xx status")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	URL     string
	Snippet string
}

func (e *StatusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Code, e.Snippet)
}

// Is reports whether target is ErrStatus.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }
