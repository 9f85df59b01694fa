// service/cse_service.go

// Package service is the request dispatcher of the CSE. It resolves the
// target of a request primitive and hands it to the resource controller.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo-cse/controller"
	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/federation"
	"github.com/dev-mohitbeniwal/echo-cse/identity"
	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/metrics"
	"github.com/dev-mohitbeniwal/echo-cse/model"
)

// ICSEService handles one request primitive and always answers with a
// response primitive; failures are carried in its status code
type ICSEService interface {
	Handle(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive
}

type CSEService struct {
	controller controller.IResourceController
	addressing identity.Addressing
	uris       *identity.URIMapper
	federation federation.IManager
}

var _ ICSEService = &CSEService{}
var _ federation.Dispatcher = &CSEService{}

func NewCSEService(
	resourceController controller.IResourceController,
	addressing identity.Addressing,
	uris *identity.URIMapper,
	federationManager federation.IManager,
) *CSEService {
	return &CSEService{
		controller: resourceController,
		addressing: addressing,
		uris:       uris,
		federation: federationManager,
	}
}

func (s *CSEService) Handle(ctx context.Context, req *model.RequestPrimitive) *model.ResponsePrimitive {
	start := time.Now()
	resp, err := s.handle(ctx, req)
	if err != nil {
		resp = model.NewResponse(req, echo_errors.StatusFor(err))
		resp.Message = echo_errors.Message(err)
		if resp.StatusCode == model.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("operation", req.Operation.String()),
				zap.String("to", req.To),
				zap.String("from", req.From),
				zap.Error(err))
		} else {
			logger.Debug("Request rejected",
				zap.String("operation", req.Operation.String()),
				zap.String("to", req.To),
				zap.Int("status", int(resp.StatusCode)),
				zap.Error(err))
		}
	}

	metrics.RequestsTotal.WithLabelValues(req.Operation.String(), fmt.Sprint(int(resp.StatusCode))).Inc()
	metrics.RequestDuration.WithLabelValues(req.Operation.String()).Observe(time.Since(start).Seconds())
	return resp
}

func (s *CSEService) handle(ctx context.Context, req *model.RequestPrimitive) (*model.ResponsePrimitive, error) {
	if req.From == "" {
		return nil, fmt.Errorf("%w: originator is required", echo_errors.ErrBadRequest)
	}
	target, err := s.addressing.Parse(req.To)
	if err != nil {
		return nil, err
	}

	if target.Kind == identity.TargetRemote {
		if s.federation == nil {
			return nil, fmt.Errorf("%w: %s", echo_errors.ErrTargetNotReachable, target.CSEID)
		}
		forwarded := *req
		forwarded.To = target.Address
		return s.federation.Retarget(ctx, &forwarded), nil
	}

	id, err := s.resolve(target)
	if err != nil {
		return nil, err
	}

	switch req.Operation {
	case model.OperationCreate:
		return s.controller.Create(ctx, req, id)
	case model.OperationRetrieve:
		return s.controller.Retrieve(ctx, req, id)
	case model.OperationUpdate:
		return s.controller.Update(ctx, req, id)
	case model.OperationDelete:
		return s.controller.Delete(ctx, req, id)
	default:
		return nil, fmt.Errorf("%w: %s", echo_errors.ErrOperationNotAllowed, req.Operation)
	}
}

// resolve maps a local target onto a resource ID
func (s *CSEService) resolve(target identity.Target) (string, error) {
	switch target.Kind {
	case identity.TargetCSEBase:
		return s.addressing.BaseID(), nil
	case identity.TargetHierarchical:
		entry, ok := s.uris.Resolve(target.Address)
		if !ok {
			return "", fmt.Errorf("%w: %s", echo_errors.ErrResourceNotFound, target.Address)
		}
		return entry.ResourceID, nil
	default:
		return target.Address, nil
	}
}
