// errors/status.go

package errors

import (
	"context"
	"errors"

	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// StatusFor maps an error raised while processing a request to the response
// status code carried back to the originator.
func StatusFor(err error) model.ResponseStatusCode {
	switch {
	case err == nil:
		return model.StatusOK
	case errors.Is(err, ErrResourceNotFound):
		return model.StatusNotFound
	case errors.Is(err, ErrNotPermittedAttribute), errors.Is(err, ErrOperationNotAllowed):
		return model.StatusOperationNotAllowed
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidResourceType):
		return model.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return model.StatusConflict
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthorized):
		return model.StatusOriginatorHasNoPrivilege
	case errors.Is(err, ErrTargetNotReachable):
		return model.StatusTargetNotReachable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.StatusRequestTimeout
	default:
		return model.StatusInternalServerError
	}
}

// Message is the diagnostic text returned to the originator. Internal errors
// are reduced to a generic message.
func Message(err error) string {
	if StatusFor(err) == model.StatusInternalServerError {
		return ErrInternalServer.Error()
	}
	return err.Error()
}
