package domain

import "errors"

var (
	ErrMissingToken       = errors.New("missing_token")
	ErrInvalidCredentials = errors.New("invalid_credentials")
)
