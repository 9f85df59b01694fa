// controller/delete.go
package controller

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
	"github.com/dev-mohitbeniwal/echo-cse/util"
)

// subtree is what a delete needs to know about the resources it removes
type subtree struct {
	copies      []model.AnncCopy
	nestedSubs  []*model.Resource
	resourceIDs []string
}

// Delete removes the target and everything below it
func (c *Controller) Delete(ctx context.Context, req *model.RequestPrimitive, targetID string) (*model.ResponsePrimitive, error) {
	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	target, err := findAndLock(ctx, tx, targetID)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, tx, req.From, model.OperationDelete, target); err != nil {
		return nil, err
	}
	d, err := c.descriptorFor(target.ResourceType)
	if err != nil {
		return nil, err
	}
	if !d.deletable {
		return nil, fmt.Errorf("%w: %s cannot be deleted", echo_errors.ErrOperationNotAllowed, target.ResourceType)
	}

	subs, err := subscriptionsOf(ctx, tx, target)
	if err != nil {
		return nil, err
	}
	below, err := c.collect(ctx, tx, target)
	if err != nil {
		return nil, err
	}

	removed, err := c.URIs.UnregisterTree(target.HierarchicalURI)
	if err != nil {
		return nil, err
	}
	tx.OnRollback(func() { c.URIs.Restore(removed) })

	parent, err := findAndLock(ctx, tx, target.ParentID)
	if err != nil {
		return nil, fmt.Errorf("cannot find parent resource: %w", err)
	}
	parentSubs, err := subscriptionsOf(ctx, tx, parent)
	if err != nil {
		return nil, err
	}
	parent.Children = withoutChild(parent.Children, target.ResourceID)
	if err := tx.Update(ctx, parent); err != nil {
		return nil, err
	}

	if err := tx.Delete(ctx, target); err != nil {
		return nil, err
	}
	// Subscribers may still need to resolve the resource
	c.Notifier.NotifyDeletion(ctx, subs, target)

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	logger.Info("Resource deleted",
		zap.String("resourceID", target.ResourceID),
		zap.Int("descendants", len(below.resourceIDs)-1),
		zap.String("originator", req.From))

	c.sweepURIs(ctx, target.HierarchicalURI)
	if target.ResourceType == model.TypeSubscription {
		c.Notifier.NotifySubscriptionDeleted(ctx, target)
	}
	for _, sub := range below.nestedSubs {
		c.Notifier.NotifySubscriptionDeleted(ctx, sub)
	}
	c.Notifier.Notify(ctx, parentSubs, target, model.EventChildDeleted)
	c.publish(ctx, util.EventResourceDeleted, target, req.From, model.OperationDelete, target.HierarchicalURI)

	if len(below.copies) > 0 && c.Federation != nil {
		if err := c.Federation.Deannounce(ctx, below.copies); err != nil {
			logger.Warn("Announced copies left behind", zap.String("resourceID", target.ResourceID), zap.Error(err))
		}
	}

	return model.NewResponse(req, model.StatusDeleted), nil
}

// collect walks the subtree of target, gathering announced copies and the
// subscriptions that disappear along with their parent
func (c *Controller) collect(ctx context.Context, tx persistence.Transaction, target *model.Resource) (*subtree, error) {
	out := &subtree{}
	stack := []*model.Resource{target}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.resourceIDs = append(out.resourceIDs, current.ResourceID)
		out.copies = append(out.copies, current.AnnouncedCopies...)
		if current != target && current.ResourceType == model.TypeSubscription && current.ParentID != target.ResourceID {
			out.nestedSubs = append(out.nestedSubs, current)
		}
		for _, ref := range current.Children {
			child, err := tx.Find(ctx, ref.ResourceID)
			if err != nil {
				return nil, err
			}
			if child != nil {
				stack = append(stack, child)
			}
		}
	}
	return out, nil
}

// sweepURIs drops bindings below a deleted resource that a racing create
// registered after the subtree was unregistered. A binding survives while
// its resource exists or its parent URI is still bound, since that create
// may yet commit under a new resource of the same name.
func (c *Controller) sweepURIs(ctx context.Context, uri string) {
	entries := c.URIs.Entries(uri)
	if len(entries) == 0 {
		return
	}
	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return
	}
	defer rollback(ctx, tx)
	for _, entry := range entries {
		if entry.URI == uri {
			continue
		}
		r, err := tx.Find(ctx, entry.ResourceID)
		if err != nil || r != nil {
			continue
		}
		if _, bound := c.URIs.Resolve(entry.URI[:strings.LastIndex(entry.URI, "/")]); bound {
			continue
		}
		if err := c.URIs.Release(entry.URI, entry.ResourceID); err != nil {
			logger.Warn("Failed to release stale URI", zap.String("uri", entry.URI), zap.Error(err))
		}
	}
}

func withoutChild(children []model.ChildRef, id string) []model.ChildRef {
	out := make([]model.ChildRef, 0, len(children))
	for _, ch := range children {
		if ch.ResourceID != id {
			out = append(out, ch)
		}
	}
	return out
}
