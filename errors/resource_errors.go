// errors/resource_errors.go

package errors

import "errors"

var (
	ErrResourceNotFound      = errors.New("resource not found")
	ErrBadRequest            = errors.New("bad request")
	ErrNotPermittedAttribute = errors.New("attribute not permitted")
	ErrOperationNotAllowed   = errors.New("operation not allowed")
	ErrConflict              = errors.New("resource conflict")
	ErrInvalidResourceType   = errors.New("invalid resource type")
	ErrTargetNotReachable    = errors.New("target not reachable")
	ErrInternalServer        = errors.New("internal server error")
)
