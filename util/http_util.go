// util/http_util.go
package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// GetOriginatorFromContext returns the originator set by the auth middleware
func GetOriginatorFromContext(c *gin.Context) string {
	originator, exists := c.Get("originator")
	if !exists {
		return c.GetHeader("X-M2M-Origin")
	}
	return originator.(string)
}

// HTTPStatusFor maps a response status code onto the closest HTTP status
func HTTPStatusFor(code model.ResponseStatusCode) int {
	switch code {
	case model.StatusOK, model.StatusUpdated:
		return 200
	case model.StatusCreated:
		return 201
	case model.StatusDeleted:
		return 200
	case model.StatusBadRequest:
		return 400
	case model.StatusOriginatorHasNoPrivilege:
		return 403
	case model.StatusNotFound:
		return 404
	case model.StatusOperationNotAllowed:
		return 405
	case model.StatusRequestTimeout:
		return 408
	case model.StatusConflict:
		return 409
	case model.StatusTargetNotReachable:
		return 404
	default:
		return 500
	}
}

// WriteResponse writes a response primitive with its status code header
func WriteResponse(c *gin.Context, resp *model.ResponsePrimitive) {
	c.Header("X-M2M-RSC", strconv.Itoa(int(resp.StatusCode)))
	if resp.RequestIdentifier != "" {
		c.Header("X-M2M-RI", resp.RequestIdentifier)
	}
	if resp.Location != "" {
		c.Header("Content-Location", resp.Location)
	}
	status := HTTPStatusFor(resp.StatusCode)
	if !resp.StatusCode.IsSuccess() {
		c.JSON(status, gin.H{"error": resp.Message})
		return
	}
	if resp.Content == nil {
		c.Status(status)
		return
	}
	c.JSON(status, resp.Content)
}
