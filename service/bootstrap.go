// service/bootstrap.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo-cse/identity"
	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
)

const adminPolicyName = "acpAdmin"

// BootstrapConfig describes the CSEBase a node starts with
type BootstrapConfig struct {
	Addressing              identity.Addressing
	AdminOriginator         string
	RegistrationOriginators []string
}

// Bootstrap makes sure the CSEBase and its administrative policy exist and
// that the URI index covers every stored resource. A store that already
// holds a tree is only re-indexed.
func Bootstrap(ctx context.Context, store persistence.Store, uris *identity.URIMapper, ids *identity.Generator, cfg BootstrapConfig) (*model.Resource, error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Failed to roll back bootstrap transaction", zap.Error(err))
		}
	}()

	base, err := tx.Find(ctx, cfg.Addressing.BaseID())
	if err != nil {
		return nil, fmt.Errorf("failed to look up CSEBase: %w", err)
	}
	if base != nil {
		count, err := reindex(ctx, tx, uris, base)
		if err != nil {
			return nil, err
		}
		logger.Info("CSEBase loaded", zap.String("resourceID", base.ResourceID), zap.Int("resources", count))
		return base, nil
	}

	now := time.Now()
	base = &model.Resource{
		ResourceID:       cfg.Addressing.BaseID(),
		Name:             cfg.Addressing.CSEName,
		HierarchicalURI:  cfg.Addressing.BaseURI(),
		ResourceType:     model.TypeCSEBase,
		CreationTime:     now,
		LastModifiedTime: now,
	}
	policyID, _ := ids.NewID("acp")
	policy := &model.Resource{
		ResourceID:       policyID,
		ParentID:         base.ResourceID,
		Name:             adminPolicyName,
		HierarchicalURI:  base.HierarchicalURI + "/" + adminPolicyName,
		ResourceType:     model.TypeAccessControlPolicy,
		CreationTime:     now,
		LastModifiedTime: now,
		Creator:          cfg.AdminOriginator,
		Privileges: []model.AccessControlRule{
			{Originators: []string{cfg.AdminOriginator}, Operations: model.MaskAll},
		},
		SelfPrivileges: []model.AccessControlRule{
			{Originators: []string{cfg.AdminOriginator}, Operations: model.MaskAll},
		},
	}
	if len(cfg.RegistrationOriginators) > 0 {
		policy.Privileges = append(policy.Privileges, model.AccessControlRule{
			Originators: append([]string(nil), cfg.RegistrationOriginators...),
			Operations:  model.MaskCreate | model.MaskRetrieve | model.MaskDiscover,
		})
	}
	base.AccessControlPolicyIDs = []string{policy.ResourceID}
	base.Children = []model.ChildRef{{Name: policy.Name, ResourceType: policy.ResourceType, ResourceID: policy.ResourceID}}

	if err := tx.Create(ctx, base); err != nil {
		return nil, fmt.Errorf("failed to create CSEBase: %w", err)
	}
	if err := tx.Create(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to create administrative policy: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit bootstrap: %w", err)
	}
	for _, r := range []*model.Resource{base, policy} {
		if err := uris.Register(r.HierarchicalURI, r.ResourceID, r.ResourceType); err != nil {
			return nil, err
		}
	}

	logger.Info("CSEBase created",
		zap.String("resourceID", base.ResourceID),
		zap.String("uri", base.HierarchicalURI),
		zap.String("adminPolicy", policy.ResourceID))
	return base, nil
}

// reindex registers the hierarchical URI of every resource below root
func reindex(ctx context.Context, tx persistence.Transaction, uris *identity.URIMapper, root *model.Resource) (int, error) {
	count := 0
	stack := []*model.Resource{root}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := uris.Register(current.HierarchicalURI, current.ResourceID, current.ResourceType); err != nil {
			return count, fmt.Errorf("failed to index %s: %w", current.ResourceID, err)
		}
		count++
		for _, ref := range current.Children {
			child, err := tx.Find(ctx, ref.ResourceID)
			if err != nil {
				return count, err
			}
			if child != nil {
				stack = append(stack, child)
			}
		}
	}
	return count, nil
}
