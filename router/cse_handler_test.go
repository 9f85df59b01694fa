// router/cse_handler_test.go
package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/echo-cse/middleware"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/router"
	mock_service "github.com/dev-mohitbeniwal/echo-cse/test/service_mock"
)

func TestCSEHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCSEService := mock_service.NewMockICSEService(ctrl)
	handler := router.NewCSEHandler(mockCSEService, 0)
	r := router.SetupRouter(handler, middleware.OriginatorAuth(""))

	t.Run("CreateResource_Success", func(t *testing.T) {
		mockCSEService.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive {
				assert.Equal(t, model.OperationCreate, req.Operation)
				assert.Equal(t, "/in-cse/in-name", req.To)
				assert.Equal(t, "CAdmin", req.From)
				assert.Equal(t, model.TypeContainer, req.ResourceType)
				assert.Equal(t, "data", req.Content.Name)
				assert.Equal(t, "req-1", req.RequestIdentifier)
				resp := model.NewResponse(req, model.StatusCreated)
				resp.Location = "/in-cse/cnt-1"
				resp.Content = &model.Resource{ResourceID: "/in-cse/cnt-1", Name: "data"}
				return resp
			})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/~/in-cse/in-name?ty=3", strings.NewReader(`{"rn":"data"}`))
		req.Header.Set("X-M2M-Origin", "CAdmin")
		req.Header.Set("X-M2M-RI", "req-1")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "2001", w.Header().Get("X-M2M-RSC"))
		assert.Equal(t, "req-1", w.Header().Get("X-M2M-RI"))
		assert.Equal(t, "/in-cse/cnt-1", w.Header().Get("Content-Location"))
	})

	t.Run("CreateResource_InvalidType", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/~/in-cse/in-name?ty=container", strings.NewReader(`{"rn":"data"}`))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("CreateResource_InvalidBody", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/~/in-cse/in-name?ty=3", strings.NewReader(`{"rn":`))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RetrieveResource_Success", func(t *testing.T) {
		mockCSEService.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive {
				assert.Equal(t, model.OperationRetrieve, req.Operation)
				assert.Equal(t, "/in-cse/in-name/data", req.To)
				assert.Equal(t, model.ResultContentAttributesChildren, req.ResultContent)
				assert.Equal(t, 2, req.Level)
				assert.Equal(t, 1, req.Offset)
				assert.NotEmpty(t, req.RequestIdentifier)
				resp := model.NewResponse(req, model.StatusOK)
				resp.Content = &model.Resource{Name: "data"}
				return resp
			})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/~/in-cse/in-name/data?rcn=attributes%2Bchildren&lvl=2&ofst=1", nil)
		req.Header.Set("X-M2M-Origin", "Creader")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body model.Resource
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "data", body.Name)
	})

	t.Run("RetrieveResource_InvalidLevel", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/~/in-cse/in-name?lvl=-1", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RetrieveResource_Failure_NotFound", func(t *testing.T) {
		mockCSEService.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive {
				resp := model.NewResponse(req, model.StatusNotFound)
				resp.Message = "resource not found"
				return resp
			})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/~/in-cse/in-name/missing", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "4004", w.Header().Get("X-M2M-RSC"))
		assert.Contains(t, w.Body.String(), "resource not found")
	})

	t.Run("UpdateResource_Success", func(t *testing.T) {
		mockCSEService.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive {
				assert.Equal(t, model.OperationUpdate, req.Operation)
				assert.Equal(t, []string{"kitchen"}, req.Content.Labels)
				resp := model.NewResponse(req, model.StatusUpdated)
				resp.Content = req.Content
				return resp
			})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/~/in-cse/cnt-1", strings.NewReader(`{"lbl":["kitchen"]}`))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2004", w.Header().Get("X-M2M-RSC"))
	})

	t.Run("UpdateResource_Failure_Forbidden", func(t *testing.T) {
		mockCSEService.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			Return(&model.ResponsePrimitive{StatusCode: model.StatusOriginatorHasNoPrivilege, Message: "originator has no privilege"})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/~/in-cse/cnt-1", strings.NewReader(`{"lbl":["x"]}`))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("DeleteResource_Success", func(t *testing.T) {
		mockCSEService.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive {
				assert.Equal(t, model.OperationDelete, req.Operation)
				assert.Nil(t, req.Content)
				return model.NewResponse(req, model.StatusDeleted)
			})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/~/in-cse/cnt-1", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2002", w.Header().Get("X-M2M-RSC"))
	})

	t.Run("HandlePrimitive_Success", func(t *testing.T) {
		mockCSEService.EXPECT().
			Handle(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive {
				assert.Equal(t, model.OperationRetrieve, req.Operation)
				assert.Equal(t, "CAdmin", req.From, "authenticated originator wins")
				assert.Equal(t, "in-name", req.To)
				return model.NewResponse(req, model.StatusOK)
			})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/primitive", strings.NewReader(`{"op":2,"fr":"Cspoofed","to":"in-name","rqi":"req-2"}`))
		req.Header.Set("X-M2M-Origin", "CAdmin")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp model.ResponsePrimitive
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, model.StatusOK, resp.StatusCode)
		assert.Equal(t, "req-2", resp.RequestIdentifier)
	})

	t.Run("HandlePrimitive_InvalidBody", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/primitive", strings.NewReader(`not json`))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Metrics_Exposed", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/metrics", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
