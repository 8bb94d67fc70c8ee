package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrAuth               = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("registration not found")
	ErrInvalidState       = errors.New("registration already processed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrDateOrder is the ValidationError for a departure not after the arrival.
var ErrDateOrder = fmt.Errorf("%w: departure must be after arrival", ErrValidation)
