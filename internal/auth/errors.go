package auth

import "errors"

var (
	ErrNotFound        = errors.New("auth: not found")
	ErrConflict        = errors.New("auth: resource conflict")
	ErrInvalidRequest  = errors.New("auth: invalid request")
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")
	ErrInvalidToken    = errors.New("auth: invalid token")
)
