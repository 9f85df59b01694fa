// controller/create.go
package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
	"github.com/dev-mohitbeniwal/echo-cse/util"
)

// Create adds a child of the given type under parentID
func (c *Controller) Create(ctx context.Context, req *model.RequestPrimitive, parentID string) (*model.ResponsePrimitive, error) {
	resourceType := req.ResourceType
	if resourceType == 0 && req.Content != nil {
		resourceType = req.Content.ResourceType
	}
	d, err := c.descriptorFor(resourceType)
	if err != nil {
		return nil, err
	}
	if !d.creatable {
		return nil, fmt.Errorf("%w: %s cannot be created", echo_errors.ErrOperationNotAllowed, resourceType)
	}

	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	parent, err := findAndLock(ctx, tx, parentID)
	if err != nil {
		return nil, fmt.Errorf("cannot find parent resource: %w", err)
	}
	if err := c.authorize(ctx, tx, req.From, model.OperationCreate, parent); err != nil {
		return nil, err
	}
	if !d.allowsParent(parent.ResourceType) {
		return nil, fmt.Errorf("%w: %s cannot be created under %s", echo_errors.ErrInvalidResourceType, resourceType, parent.ResourceType)
	}
	subs, err := subscriptionsOf(ctx, tx, parent)
	if err != nil {
		return nil, err
	}

	if req.Content == nil {
		return nil, fmt.Errorf("%w: content is required to create a %s", echo_errors.ErrBadRequest, resourceType)
	}
	if req.Content.ResourceType != 0 && req.Content.ResourceType != resourceType {
		return nil, fmt.Errorf("%w: content type %s does not match %s", echo_errors.ErrBadRequest, req.Content.ResourceType, resourceType)
	}

	resource, err := c.buildResource(ctx, tx, d, req, parent)
	if err != nil {
		return nil, err
	}

	if err := c.URIs.Register(resource.HierarchicalURI, resource.ResourceID, resource.ResourceType); err != nil {
		return nil, err
	}
	uri, id := resource.HierarchicalURI, resource.ResourceID
	tx.OnRollback(func() {
		if err := c.URIs.Release(uri, id); err != nil {
			logger.Error("Failed to release URI of aborted create", zap.String("uri", uri), zap.Error(err))
		}
	})

	if err := tx.Create(ctx, resource); err != nil {
		return nil, err
	}
	created, err := findExisting(ctx, tx, resource.ResourceID)
	if err != nil {
		return nil, err
	}

	parent.Children = append(parent.Children, model.ChildRef{
		Name:         created.Name,
		ResourceType: created.ResourceType,
		ResourceID:   created.ResourceID,
	})
	if err := tx.Update(ctx, parent); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	logger.Info("Resource created",
		zap.String("resourceID", created.ResourceID),
		zap.String("type", created.ResourceType.String()),
		zap.String("originator", req.From))

	c.Notifier.Notify(ctx, subs, created, model.EventChildCreated)
	c.publish(ctx, util.EventResourceCreated, created, req.From, model.OperationCreate, created.HierarchicalURI)

	if len(created.AnnounceTo) > 0 && c.Federation != nil {
		created = c.announce(ctx, created, parent)
	}

	resp := model.NewResponse(req, model.StatusCreated)
	resp.Location = created.ResourceID
	if req.ResultContent != model.ResultContentNothing {
		resp.Content = representation(created)
	}
	return resp, nil
}

// buildResource validates the request content against the type's attribute
// classes and produces the entity to store
func (c *Controller) buildResource(ctx context.Context, tx persistence.Transaction, d *descriptor, req *model.RequestPrimitive, parent *model.Resource) (*model.Resource, error) {
	content := req.Content
	for _, name := range presentAttributes(content) {
		if d.allowsOnCreate(name) {
			continue
		}
		if serverOnly[name] {
			return nil, fmt.Errorf("%w: %s is set by the CSE", echo_errors.ErrNotPermittedAttribute, name)
		}
		return nil, fmt.Errorf("%w: %s is not an attribute of %s", echo_errors.ErrBadRequest, name, d.resourceType)
	}
	present := presentAttributes(content)
	for _, name := range d.mandatory {
		if !contains(present, name) {
			return nil, fmt.Errorf("%w: mandatory attribute %s is missing", echo_errors.ErrBadRequest, name)
		}
	}

	resource := &model.Resource{}
	for _, name := range present {
		copyAttribute(resource, content, name)
	}

	id, defaultName := c.IDs.NewID(d.prefix)
	now := c.now()
	resource.ResourceID = id
	resource.ParentID = parent.ResourceID
	resource.ResourceType = d.resourceType
	resource.CreationTime = now
	resource.LastModifiedTime = now
	resource.Creator = req.From
	if resource.Name == "" {
		resource.Name = defaultName
	}
	if err := c.Validation.ValidateName(resource.Name); err != nil {
		return nil, err
	}
	resource.HierarchicalURI = parent.HierarchicalURI + "/" + resource.Name

	if len(resource.AccessControlPolicyIDs) > 0 {
		resolved, err := c.resolveReferences(ctx, tx, resource.AccessControlPolicyIDs, model.TypeAccessControlPolicy)
		if err != nil {
			return nil, err
		}
		resource.AccessControlPolicyIDs = resolved
	} else if d.inheritsACP {
		// Frozen copy: later changes to the parent do not propagate
		resource.AccessControlPolicyIDs = append([]string(nil), parent.AccessControlPolicyIDs...)
	}
	if resource.DynamicAuthorizationConsultationIDs != nil {
		resolved, err := c.resolveReferences(ctx, tx, resource.DynamicAuthorizationConsultationIDs, model.TypeDAC)
		if err != nil {
			return nil, err
		}
		resource.DynamicAuthorizationConsultationIDs = resolved
	}

	if d.prepare != nil {
		d.prepare(c, resource)
	}
	if d.validate != nil {
		if err := d.validate(c, resource); err != nil {
			return nil, err
		}
	}
	if d.verify != nil {
		if err := d.verify(ctx, c, resource); err != nil {
			return nil, err
		}
	}
	return resource, nil
}

// announce creates the announced copies of a freshly created resource and
// records them on it. Failures leave the resource as it was committed.
func (c *Controller) announce(ctx context.Context, created, parent *model.Resource) *model.Resource {
	copies := c.Federation.Announce(ctx, created, parent)
	if len(copies) == 0 {
		return created
	}

	tx, err := c.Store.Begin(ctx)
	if err != nil {
		logger.Error("Failed to record announced copies", zap.String("resourceID", created.ResourceID), zap.Error(err))
		c.undoAnnounce(ctx, copies)
		return created
	}
	defer rollback(ctx, tx)

	current, err := findAndLock(ctx, tx, created.ResourceID)
	if err == nil {
		current.AnnouncedCopies = append(current.AnnouncedCopies, copies...)
		err = tx.Update(ctx, current)
	}
	if err == nil {
		err = tx.Commit(ctx)
	}
	if err != nil {
		logger.Error("Failed to record announced copies", zap.String("resourceID", created.ResourceID), zap.Error(err))
		c.undoAnnounce(ctx, copies)
		return created
	}
	return current
}

func (c *Controller) undoAnnounce(ctx context.Context, copies []model.AnncCopy) {
	if err := c.Federation.Deannounce(ctx, copies); err != nil {
		logger.Warn("Orphaned announced copies may remain", zap.Error(err))
	}
}
