// controller/retrieve.go
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
)

// Retrieve returns the target projected according to the requested result
// content, level and offset
func (c *Controller) Retrieve(ctx context.Context, req *model.RequestPrimitive, targetID string) (*model.ResponsePrimitive, error) {
	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	target, err := findExisting(ctx, tx, targetID)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, tx, req.From, model.OperationRetrieve, target); err != nil {
		return nil, err
	}

	if req.ResultContent == model.ResultContentOriginalResource && target.ResourceType.IsAnnounced() {
		rollback(ctx, tx)
		return c.retargetToOriginal(ctx, req, target, nil)
	}

	content, err := c.project(ctx, tx, req, target)
	if err != nil {
		return nil, err
	}
	resp := model.NewResponse(req, model.StatusOK)
	resp.Content = content
	return resp, nil
}

// retargetToOriginal serves a request addressed to an announced copy from
// its original, acting as the administrative originator
func (c *Controller) retargetToOriginal(ctx context.Context, req *model.RequestPrimitive, annc *model.Resource, content *model.Resource) (*model.ResponsePrimitive, error) {
	if c.Federation == nil || annc.Link == "" {
		return nil, fmt.Errorf("%w: announced resource has no reachable original", echo_errors.ErrTargetNotReachable)
	}
	forwarded := &model.RequestPrimitive{
		Operation:         req.Operation,
		From:              c.Evaluator.AdminOriginator(),
		To:                annc.Link,
		RequestIdentifier: uuid.NewString(),
		Content:           content,
		ResultContent:     model.ResultContentAttributes,
	}
	resp := c.Federation.Retarget(ctx, forwarded)
	resp.RequestIdentifier = req.RequestIdentifier
	return resp, nil
}

// project builds the response content for a retrieve
func (c *Controller) project(ctx context.Context, tx persistence.Transaction, req *model.RequestPrimitive, target *model.Resource) (*model.Resource, error) {
	if err := c.decorate(ctx, tx, target); err != nil {
		return nil, err
	}

	switch req.ResultContent {
	case model.ResultContentNothing:
		return nil, nil
	case "", model.ResultContentAttributes, model.ResultContentOriginalResource:
		return representation(target), nil
	case model.ResultContentAttributesChildRefs, model.ResultContentChildRefs, model.ResultContentAttributesChildren:
	default:
		return nil, fmt.Errorf("%w: unsupported result content %q", echo_errors.ErrBadRequest, req.ResultContent)
	}

	tree, refs, err := c.walk(ctx, tx, req, target)
	if err != nil {
		return nil, err
	}
	switch req.ResultContent {
	case model.ResultContentAttributesChildren:
		return tree, nil
	case model.ResultContentAttributesChildRefs:
		out := representation(target)
		out.Children = refs
		return out, nil
	default:
		return &model.Resource{ResourceID: target.ResourceID, Children: refs}, nil
	}
}

type frame struct {
	node  *model.Resource
	refs  []model.ChildRef
	depth int
}

// walk traverses the subtree below target depth first without recursion.
// It returns the nested representation and the flattened child references
// of every visited descendant. Offset skips the first top-level children;
// level and the result count are capped by configuration.
func (c *Controller) walk(ctx context.Context, tx persistence.Transaction, req *model.RequestPrimitive, target *model.Resource) (*model.Resource, []model.ChildRef, error) {
	level := req.Level
	if c.MaxLevel > 0 && level > c.MaxLevel {
		level = c.MaxLevel
	}
	root := representation(target)
	if level <= 0 {
		return root, nil, nil
	}

	top := target.Children
	if req.Offset > 0 {
		if req.Offset >= len(top) {
			top = nil
		} else {
			top = top[req.Offset:]
		}
	}

	var refs []model.ChildRef
	count := 0
	stack := []frame{{node: root, refs: top, depth: 1}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if len(f.refs) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		if c.MaxResults > 0 && count >= c.MaxResults {
			break
		}
		ref := f.refs[0]
		f.refs = f.refs[1:]
		parent, depth := f.node, f.depth

		child, err := tx.Find(ctx, ref.ResourceID)
		if err != nil {
			return nil, nil, err
		}
		if child == nil {
			continue
		}
		if err := c.authorize(ctx, tx, req.From, model.OperationRetrieve, child); err != nil {
			if errors.Is(err, echo_errors.ErrForbidden) {
				continue
			}
			return nil, nil, err
		}
		if err := c.decorate(ctx, tx, child); err != nil {
			return nil, nil, err
		}

		count++
		refs = append(refs, ref)
		node := representation(child)
		parent.ChildResources = append(parent.ChildResources, node)
		if depth < level && len(child.Children) > 0 {
			// f may be invalidated by the append below
			stack = append(stack, frame{node: node, refs: child.Children, depth: depth + 1})
		}
	}
	return root, refs, nil
}

// decorate fills attributes derived at read time
func (c *Controller) decorate(ctx context.Context, tx persistence.Transaction, r *model.Resource) error {
	d, ok := c.types[r.ResourceType]
	if !ok || d.project == nil {
		return nil
	}
	return d.project(ctx, c, tx, r)
}

// representation is the attribute view of r, without child references
func representation(r *model.Resource) *model.Resource {
	out := r.Clone()
	out.Children = nil
	out.ChildResources = nil
	return out
}
