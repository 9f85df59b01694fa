// controller/update.go
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

// Update merges the request content into the target and answers with the
// changed attributes
func (c *Controller) Update(ctx context.Context, req *model.RequestPrimitive, targetID string) (*model.ResponsePrimitive, error) {
	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	target, err := findAndLock(ctx, tx, targetID)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, tx, req.From, model.OperationUpdate, target); err != nil {
		return nil, err
	}

	if req.ResultContent == model.ResultContentOriginalResource && target.ResourceType.IsAnnounced() {
		// Release the copy before talking to the original
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return c.retargetToOriginal(ctx, req, target, req.Content)
	}

	d, err := c.descriptorFor(target.ResourceType)
	if err != nil {
		return nil, err
	}
	subs, err := subscriptionsOf(ctx, tx, target)
	if err != nil {
		return nil, err
	}

	delta := &model.Resource{}
	if req.Content != nil {
		if err := c.merge(ctx, tx, d, target, req.Content, delta); err != nil {
			return nil, err
		}
	}
	if d.validate != nil {
		if err := d.validate(c, target); err != nil {
			return nil, err
		}
	}
	target.LastModifiedTime = c.now()
	delta.LastModifiedTime = target.LastModifiedTime

	if err := tx.Update(ctx, target); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	logger.Info("Resource updated",
		zap.String("resourceID", target.ResourceID),
		zap.Strings("attributes", presentAttributes(delta)),
		zap.String("originator", req.From))

	c.Notifier.NotifyDelta(ctx, subs, target, delta, model.EventUpdated)
	c.publish(ctx, util.EventResourceUpdated, target, req.From, model.OperationUpdate, "")

	resp := model.NewResponse(req, model.StatusUpdated)
	if req.ResultContent != model.ResultContentNothing {
		resp.Content = delta
	}
	return resp, nil
}

// merge applies every attribute present in content to target, recording
// each actual change in delta
func (c *Controller) merge(ctx context.Context, tx persistence.Transaction, d *descriptor, target, content, delta *model.Resource) error {
	for _, name := range presentAttributes(content) {
		switch {
		case contains(d.immutable, name):
			if !sameAttribute(target, content, name) {
				return fmt.Errorf("%w: %s cannot be changed", echo_errors.ErrBadRequest, name)
			}
			continue
		case !contains(d.updatable, name):
			return fmt.Errorf("%w: %s cannot be updated", echo_errors.ErrNotPermittedAttribute, name)
		}

		switch name {
		case "acpi":
			// An empty list keeps the current policies
			if len(content.AccessControlPolicyIDs) == 0 {
				continue
			}
			resolved, err := c.resolveReferences(ctx, tx, content.AccessControlPolicyIDs, model.TypeAccessControlPolicy)
			if err != nil {
				return err
			}
			content = content.Clone()
			content.AccessControlPolicyIDs = resolved
		case "daci":
			resolved, err := c.resolveReferences(ctx, tx, content.DynamicAuthorizationConsultationIDs, model.TypeDAC)
			if err != nil {
				return err
			}
			content = content.Clone()
			content.DynamicAuthorizationConsultationIDs = resolved
		case "ca":
			changed, err := mergeCustomAttributes(target, content.CustomAttributes)
			if err != nil {
				return err
			}
			if len(changed) > 0 {
				delta.CustomAttributes = changed
			}
			continue
		}

		if sameAttribute(target, content, name) {
			continue
		}
		copyAttribute(target, content, name)
		copyAttribute(delta, content, name)
	}
	return nil
}

// mergeCustomAttributes updates existing custom attributes by name. Names
// not declared at creation are rejected.
func mergeCustomAttributes(target *model.Resource, updates []model.CustomAttribute) ([]model.CustomAttribute, error) {
	var changed []model.CustomAttribute
	for _, update := range updates {
		current := target.CustomAttribute(update.Name)
		if current == nil {
			return nil, fmt.Errorf("%w: %s is not a custom attribute of %s", echo_errors.ErrBadRequest, update.Name, target.ResourceID)
		}
		if update.Type != "" && update.Type != current.Type {
			return nil, fmt.Errorf("%w: type of custom attribute %s cannot be changed", echo_errors.ErrBadRequest, update.Name)
		}
		if current.Value == update.Value {
			continue
		}
		current.Value = update.Value
		changed = append(changed, *current)
	}
	return changed, nil
}
