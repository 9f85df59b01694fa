// router/cse_handler.go
package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/service"
	"github.com/dev-mohitbeniwal/echo-cse/util"
	helper_util "github.com/dev-mohitbeniwal/echo-cse/util/helper"
)

// CSEHandler binds request primitives to HTTP. POST /primitive carries a
// whole primitive in JSON and /~/<address> maps HTTP verbs onto operations
// against an SP-relative address.
type CSEHandler struct {
	cseService   service.ICSEService
	defaultLevel int
}

// NewCSEHandler builds the handler. defaultLevel applies to retrieves that
// do not send lvl.
func NewCSEHandler(cseService service.ICSEService, defaultLevel int) *CSEHandler {
	return &CSEHandler{cseService: cseService, defaultLevel: defaultLevel}
}

// RegisterRoutes registers the API routes of the CSE
func (h *CSEHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/primitive", h.HandlePrimitive)

	resources := r.Group("/~")
	{
		resources.POST("/*address", h.CreateResource)
		resources.GET("/*address", h.RetrieveResource)
		resources.PUT("/*address", h.UpdateResource)
		resources.DELETE("/*address", h.DeleteResource)
	}
}

// HandlePrimitive endpoint
func (h *CSEHandler) HandlePrimitive(c *gin.Context) {
	var req model.RequestPrimitive
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request primitive", echo_errors.ErrBadRequest)
		return
	}
	if originator := util.GetOriginatorFromContext(c); originator != "" {
		req.From = originator
	}
	if req.RequestIdentifier == "" {
		req.RequestIdentifier = c.GetHeader("X-M2M-RI")
	}

	resp := h.cseService.Handle(c.Request.Context(), &req)
	c.Header("X-M2M-RSC", strconv.Itoa(int(resp.StatusCode)))
	c.JSON(util.HTTPStatusFor(resp.StatusCode), resp)
}

// CreateResource endpoint
func (h *CSEHandler) CreateResource(c *gin.Context) {
	ty, err := helper_util.GetResourceType(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid resource type", err)
		return
	}
	var content model.Resource
	if err := c.ShouldBindJSON(&content); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid resource data", err)
		return
	}
	req := h.newRequest(c, model.OperationCreate)
	req.ResourceType = ty
	req.Content = &content
	req.ResultContent = model.ResultContent(c.Query("rcn"))
	util.WriteResponse(c, h.cseService.Handle(c.Request.Context(), req))
}

// RetrieveResource endpoint
func (h *CSEHandler) RetrieveResource(c *gin.Context) {
	rcn, level, offset, err := helper_util.GetRetrieveParams(c, h.defaultLevel)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid retrieve parameters", err)
		return
	}
	req := h.newRequest(c, model.OperationRetrieve)
	req.ResultContent = rcn
	req.Level = level
	req.Offset = offset
	util.WriteResponse(c, h.cseService.Handle(c.Request.Context(), req))
}

// UpdateResource endpoint
func (h *CSEHandler) UpdateResource(c *gin.Context) {
	var content model.Resource
	if err := c.ShouldBindJSON(&content); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid resource data", err)
		return
	}
	req := h.newRequest(c, model.OperationUpdate)
	req.Content = &content
	req.ResultContent = model.ResultContent(c.Query("rcn"))
	util.WriteResponse(c, h.cseService.Handle(c.Request.Context(), req))
}

// DeleteResource endpoint
func (h *CSEHandler) DeleteResource(c *gin.Context) {
	req := h.newRequest(c, model.OperationDelete)
	util.WriteResponse(c, h.cseService.Handle(c.Request.Context(), req))
}

func (h *CSEHandler) newRequest(c *gin.Context, op model.Operation) *model.RequestPrimitive {
	rqi := c.GetHeader("X-M2M-RI")
	if rqi == "" {
		rqi = uuid.NewString()
	}
	return &model.RequestPrimitive{
		Operation:         op,
		From:              util.GetOriginatorFromContext(c),
		To:                c.Param("address"),
		RequestIdentifier: rqi,
	}
}
