// errors/access_errors.go

package errors

import "errors"

var (
	ErrForbidden    = errors.New("originator has no privilege")
	ErrUnauthorized = errors.New("unauthorized")
)
