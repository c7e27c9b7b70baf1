package auth

import "errors"

var (
	// ErrMissingToken indicates no Authorization header was supplied.
	ErrMissingToken = errors.New("missing authorization token")

	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("invalid token")
)
