package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	echo_errors "github.com/dev-mohitbeniwal/echo-cse/errors"
	logger "github.com/dev-mohitbeniwal/echo-cse/logging"
	"github.com/dev-mohitbeniwal/echo-cse/model"
	pdp_model "github.com/dev-mohitbeniwal/echo-cse/pdp/model"
)

// Originators matching every requester
var wildcardOriginators = []string{"*", "all"}

// Consultant asks a dynamic authorisation server for a verdict
type Consultant interface {
	Consult(ctx context.Context, dac *model.Resource, request *pdp_model.AccessRequest) (bool, error)
}

type PolicyEvaluator struct {
	adminOriginator string
	cache           *lru.Cache[pdp_model.CacheKey, pdp_model.AccessDecision]
	consultant      Consultant
	now             func() time.Time
}

// NewPolicyEvaluator builds an evaluator. consultant may be nil, which turns
// dynamic authorisation off.
func NewPolicyEvaluator(adminOriginator string, cacheSize int, consultant Consultant) (*PolicyEvaluator, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[pdp_model.CacheKey, pdp_model.AccessDecision](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}
	return &PolicyEvaluator{
		adminOriginator: adminOriginator,
		cache:           cache,
		consultant:      consultant,
		now:             time.Now,
	}, nil
}

// AdminOriginator is the originator that bypasses evaluation
func (pe *PolicyEvaluator) AdminOriginator() string {
	return pe.adminOriginator
}

// Authorize returns nil on Allow and an ErrForbidden-wrapped error on Deny
func (pe *PolicyEvaluator) Authorize(ctx context.Context, request *pdp_model.AccessRequest, set pdp_model.PolicySet) error {
	decision, err := pe.Evaluate(ctx, request, set)
	if err != nil {
		return err
	}
	if !decision.Allowed() {
		return fmt.Errorf("%w: %s on %s", echo_errors.ErrForbidden, request.Operation, request.Target.ID)
	}
	return nil
}

func (pe *PolicyEvaluator) Evaluate(ctx context.Context, request *pdp_model.AccessRequest, set pdp_model.PolicySet) (*pdp_model.AccessDecision, error) {
	if request.Originator != "" && request.Originator == pe.adminOriginator {
		return &pdp_model.AccessDecision{Effect: pdp_model.EffectAllow, Reason: "administrative originator"}, nil
	}

	decision := pe.evaluateStatic(request, set.Policies)
	if decision.Allowed() || len(set.DACs) == 0 || pe.consultant == nil {
		return decision, nil
	}

	dynamic, err := pe.consult(ctx, request, set.DACs)
	if err != nil {
		return nil, err
	}
	return dynamic, nil
}

func (pe *PolicyEvaluator) evaluateStatic(request *pdp_model.AccessRequest, policies []*model.Resource) *pdp_model.AccessDecision {
	cacheKey := pe.generateCacheKey(request, policies)
	if cached, ok := pe.cache.Get(cacheKey); ok {
		logger.Debug("Cache hit for access request",
			zap.String("originator", request.Originator),
			zap.String("target", request.Target.ID))
		return &cached
	}

	decision := pdp_model.AccessDecision{Effect: pdp_model.EffectDeny, Reason: "no rule grants the operation"}
	for _, policy := range policies {
		decision.EvaluatedPolicies = append(decision.EvaluatedPolicies, policy.ResourceID)
		rules := policy.Privileges
		if request.Target.SelfPrivileges {
			rules = policy.SelfPrivileges
		}
		if pe.grants(rules, request) {
			decision.Effect = pdp_model.EffectAllow
			decision.Reason = "granted by " + policy.ResourceID
			break
		}
	}
	if len(policies) == 0 {
		decision.Reason = "no access control policy applies"
	}

	pe.cache.Add(cacheKey, decision)
	return &decision
}

func (pe *PolicyEvaluator) grants(rules []model.AccessControlRule, request *pdp_model.AccessRequest) bool {
	for _, rule := range rules {
		if !rule.Operations.Allows(request.Operation) {
			continue
		}
		if matchOriginator(rule.Originators, request.Originator) {
			return true
		}
	}
	return false
}

func matchOriginator(originators []string, originator string) bool {
	for _, candidate := range originators {
		if candidate == originator {
			return true
		}
		for _, wildcard := range wildcardOriginators {
			if candidate == wildcard {
				return true
			}
		}
		// "C*" style prefix patterns
		if strings.HasSuffix(candidate, "*") && len(candidate) > 1 &&
			strings.HasPrefix(originator, strings.TrimSuffix(candidate, "*")) {
			return true
		}
	}
	return false
}

func (pe *PolicyEvaluator) consult(ctx context.Context, request *pdp_model.AccessRequest, dacs []*model.Resource) (*pdp_model.AccessDecision, error) {
	decision := &pdp_model.AccessDecision{Effect: pdp_model.EffectDeny, Reason: "no dynamic authorisation granted the operation"}
	now := pe.now()
	for _, dac := range dacs {
		if !consultable(dac, now) {
			continue
		}
		decision.Consulted = append(decision.Consulted, dac.ResourceID)
		granted, err := pe.consultant.Consult(ctx, dac, request)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Dynamic authorisation consultation failed",
				zap.String("dac", dac.ResourceID),
				zap.Error(err))
			continue
		}
		if granted {
			decision.Effect = pdp_model.EffectAllow
			decision.Reason = "granted by " + dac.ResourceID
			return decision, nil
		}
	}
	return decision, nil
}

func consultable(dac *model.Resource, now time.Time) bool {
	if dac == nil || dac.DynamicAuthorizationEnabled == nil || !*dac.DynamicAuthorizationEnabled {
		return false
	}
	if len(dac.DynamicAuthorizationPoA) == 0 {
		return false
	}
	if dac.DynamicAuthorizationLifetime != nil && now.After(*dac.DynamicAuthorizationLifetime) {
		return false
	}
	return true
}

func (pe *PolicyEvaluator) generateCacheKey(request *pdp_model.AccessRequest, policies []*model.Resource) pdp_model.CacheKey {
	var b strings.Builder
	for _, policy := range policies {
		b.WriteString(policy.ResourceID)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(policy.LastModifiedTime.UnixNano(), 10))
		b.WriteByte(';')
	}
	return pdp_model.CacheKey{
		Originator: request.Originator,
		Operation:  int(request.Operation),
		Policies:   b.String(),
		Self:       request.Target.SelfPrivileges,
	}
}
