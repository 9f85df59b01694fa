// controller/controller.go

// Package controller implements the CRUD state machine shared by every
// resource type of the CSE. Each operation runs in one persistence
// transaction; notifications and announcements go out after commit.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/federation"
	"github.com/dev-mohitbeniwal/echo-cse/identity"
	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/metrics"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/notification"
	pdp_dao "github.com/dev-mohitbeniwal/echo-cse/pdp/dao"
	"github.com/dev-mohitbeniwal/echo-cse/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/echo-cse/pdp/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
	"github.com/dev-mohitbeniwal/echo-cse/util"
)

// IResourceController is the CRUD surface the request dispatcher uses. The
// target and parent arguments are resource IDs.
type IResourceController interface {
	Create(ctx context.Context, req *model.RequestPrimitive, parentID string) (*model.ResponsePrimitive, error)
	Retrieve(ctx context.Context, req *model.RequestPrimitive, targetID string) (*model.ResponsePrimitive, error)
	Update(ctx context.Context, req *model.RequestPrimitive, targetID string) (*model.ResponsePrimitive, error)
	Delete(ctx context.Context, req *model.RequestPrimitive, targetID string) (*model.ResponsePrimitive, error)
}

// Dependencies wires a Controller to the rest of the node
type Dependencies struct {
	Store      persistence.Store
	URIs       *identity.URIMapper
	IDs        *identity.Generator
	Addressing identity.Addressing
	Policies   *pdp_dao.PolicyRetrievalDAO
	Evaluator  *engine.PolicyEvaluator
	Notifier   notification.INotifier
	Federation federation.IManager
	Validation *util.ValidationUtil
	EventBus   *util.EventBus
	MaxLevel   int
	MaxResults int
}

type Controller struct {
	Dependencies
	types map[model.ResourceType]*descriptor
	now   func() time.Time
}

var _ IResourceController = &Controller{}

func NewController(deps Dependencies) *Controller {
	if deps.Policies == nil {
		deps.Policies = pdp_dao.NewPolicyRetrievalDAO()
	}
	if deps.Validation == nil {
		deps.Validation = util.NewValidationUtil()
	}
	return &Controller{Dependencies: deps, types: descriptors(), now: time.Now}
}

func (c *Controller) descriptorFor(t model.ResourceType) (*descriptor, error) {
	d, ok := c.types[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", echo_errors.ErrInvalidResourceType, t)
	}
	return d, nil
}

// authorize evaluates op by originator against the policies governing r
func (c *Controller) authorize(ctx context.Context, tx persistence.Transaction, originator string, op model.Operation, r *model.Resource) error {
	set, err := c.Policies.RetrieveRelevantPolicies(ctx, tx, r)
	if err != nil {
		return err
	}
	request := &pdp_model.AccessRequest{
		Originator: originator,
		Operation:  op,
		Target: pdp_model.Target{
			ID:             r.ResourceID,
			Type:           r.ResourceType,
			SelfPrivileges: r.ResourceType == model.TypeAccessControlPolicy,
		},
		Timestamp: c.now(),
	}
	if err := c.Evaluator.Authorize(ctx, request, set); err != nil {
		if errors.Is(err, echo_errors.ErrForbidden) {
			metrics.AccessDenied.Inc()
			c.publish(ctx, util.EventAccessDenied, r, originator, op, err.Error())
		}
		return err
	}
	return nil
}

// findExisting is Find with absence reported as ErrResourceNotFound
func findExisting(ctx context.Context, tx persistence.Transaction, id string) (*model.Resource, error) {
	r, err := tx.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", echo_errors.ErrResourceNotFound, id)
	}
	return r, nil
}

// findAndLock locks the resource and re-reads it, since the version seen
// before the lock may have been replaced or deleted in the meantime
func findAndLock(ctx context.Context, tx persistence.Transaction, id string) (*model.Resource, error) {
	r, err := findExisting(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Lock(ctx, r); err != nil {
		return nil, err
	}
	return findExisting(ctx, tx, id)
}

// subscriptionsOf loads the subscription children of r
func subscriptionsOf(ctx context.Context, tx persistence.Transaction, r *model.Resource) ([]*model.Resource, error) {
	var subs []*model.Resource
	for _, ref := range r.ChildRefsOfType(model.TypeSubscription) {
		sub, err := tx.Find(ctx, ref.ResourceID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// resolveReferences turns acpi and daci entries given as IDs or
// hierarchical addresses into resource IDs of existing resources
func (c *Controller) resolveReferences(ctx context.Context, tx persistence.Transaction, ids []string, want model.ResourceType) ([]string, error) {
	if ids == nil {
		return nil, nil
	}
	resolved := make([]string, 0, len(ids))
	for _, ref := range ids {
		id, err := c.resolveAddress(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid reference %q", echo_errors.ErrConflict, ref)
		}
		target, err := tx.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		if target == nil || target.ResourceType != want {
			return nil, fmt.Errorf("%w: %q does not reference a %s", echo_errors.ErrConflict, ref, want)
		}
		if !contains(resolved, id) {
			resolved = append(resolved, id)
		}
	}
	return resolved, nil
}

// resolveAddress maps a local address onto a resource ID without touching
// the store
func (c *Controller) resolveAddress(address string) (string, error) {
	target, err := c.Addressing.Parse(address)
	if err != nil {
		return "", err
	}
	switch target.Kind {
	case identity.TargetCSEBase:
		return c.Addressing.BaseID(), nil
	case identity.TargetHierarchical:
		entry, ok := c.URIs.Resolve(target.Address)
		if !ok {
			return "", fmt.Errorf("%w: %s", echo_errors.ErrResourceNotFound, address)
		}
		return entry.ResourceID, nil
	case identity.TargetUnstructured:
		return target.Address, nil
	default:
		return "", fmt.Errorf("%w: %s is not local", echo_errors.ErrBadRequest, address)
	}
}

func (c *Controller) publish(ctx context.Context, eventType string, r *model.Resource, originator string, op model.Operation, detail string) {
	if c.EventBus == nil {
		return
	}
	c.EventBus.Publish(ctx, eventType, util.ResourceEvent{
		ResourceID:   r.ResourceID,
		ResourceType: r.ResourceType.String(),
		Originator:   originator,
		Operation:    op.String(),
		Detail:       detail,
	})
}

// rollback aborts tx, logging rather than masking the original error
func rollback(ctx context.Context, tx persistence.Transaction) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.Error("Failed to roll back transaction", zap.Error(err))
	}
}
