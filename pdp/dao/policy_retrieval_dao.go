package dao

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	pdp_model "github.com/dev-mohitbeniwal/echo-cse/pdp/model"
	"github.com/dev-mohitbeniwal/echo-cse/persistence"
)

// PolicyRetrievalDAO loads the policies and DACs that govern a resource
// through the caller's transaction, so authorisation sees the same snapshot
// as the operation it guards.
type PolicyRetrievalDAO struct{}

func NewPolicyRetrievalDAO() *PolicyRetrievalDAO {
	return &PolicyRetrievalDAO{}
}

// RetrieveRelevantPolicies resolves target's acpi and daci. An ACP resource
// is governed by its own self-privileges instead of its acpi.
func (dao *PolicyRetrievalDAO) RetrieveRelevantPolicies(ctx context.Context, tx persistence.Transaction, target *model.Resource) (pdp_model.PolicySet, error) {
	var set pdp_model.PolicySet
	if target.ResourceType == model.TypeAccessControlPolicy {
		set.Policies = []*model.Resource{target}
		return set, nil
	}

	for _, id := range target.AccessControlPolicyIDs {
		acp, err := tx.Find(ctx, id)
		if err != nil {
			return set, fmt.Errorf("failed to load access control policy %s: %w", id, err)
		}
		if acp == nil || acp.ResourceType != model.TypeAccessControlPolicy {
			logger.Warn("Skipping unresolvable access control policy",
				zap.String("resource", target.ResourceID),
				zap.String("acp", id))
			continue
		}
		set.Policies = append(set.Policies, acp)
	}

	for _, id := range target.DynamicAuthorizationConsultationIDs {
		dac, err := tx.Find(ctx, id)
		if err != nil {
			return set, fmt.Errorf("failed to load dynamic authorisation %s: %w", id, err)
		}
		if dac == nil {
			continue
		}
		set.DACs = append(set.DACs, dac)
	}
	return set, nil
}
