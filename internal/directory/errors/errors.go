package errors

import (
	"fmt"
)

var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrDuplicateName   = fmt.Errorf("duplicate name")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrConflict        = fmt.Errorf("conflict")
	ErrUnauthenticated = fmt.Errorf("unauthenticated")
	ErrRateLimited     = fmt.Errorf("rate limited")
	ErrForbidden       = fmt.Errorf("forbidden")
)
