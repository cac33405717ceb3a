package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/metrics"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	pdp_model "github.com/dev-mohitbeniwal/gatekeeper/pdp/model"
)

// PrivilegeChecker is satisfied by the privilege cache.
type PrivilegeChecker interface {
	HasPrivilege(ctx context.Context, tenantID string, principal model.Principal, key, dataID string) (bool, error)
}

// Authorizer combines a principal's direct grants with those of its groups.
// It keeps no state beyond its collaborators.
type Authorizer struct {
	privileges     PrivilegeChecker
	anonymousGroup string
	policy         pdp_model.Policy
}

func NewAuthorizer(privileges PrivilegeChecker, anonymousGroup string, policy pdp_model.Policy) *Authorizer {
	return &Authorizer{
		privileges:     privileges,
		anonymousGroup: anonymousGroup,
		policy:         policy,
	}
}

// Authorize reports whether the identity, or any of groups, holds key on
// dataID. A nil identity is checked against the tenant's anonymous group.
// Absence of a grant is false, never an error; errors mean the store could
// not be consulted.
func (a *Authorizer) Authorize(ctx context.Context, tenantID string, identity *model.Identity, groups []string, key, dataID string) (bool, error) {
	if identity == nil {
		return a.privileges.HasPrivilege(ctx, tenantID, model.Group(a.anonymousGroup), key, dataID)
	}

	if identity.TenantID != tenantID {
		logger.Warn("Identity presented to foreign tenant",
			zap.String("tenantID", tenantID),
			zap.String("identityTenantID", identity.TenantID))
		return false, nil
	}

	ok, err := a.privileges.HasPrivilege(ctx, tenantID, model.User(identity.UserID), key, dataID)
	if err != nil || ok {
		return ok, err
	}

	for _, group := range groups {
		ok, err := a.privileges.HasPrivilege(ctx, tenantID, model.Group(group), key, dataID)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Evaluate checks an operation against the declared policy table.
func (a *Authorizer) Evaluate(ctx context.Context, request pdp_model.AccessRequest) (pdp_model.AccessDecision, error) {
	decision, err := a.evaluate(ctx, request)
	if err != nil {
		metrics.Decisions.WithLabelValues("error").Inc()
		return pdp_model.Deny("evaluation failed"), err
	}
	metrics.Decisions.WithLabelValues(decision.Effect).Inc()
	return decision, nil
}

func (a *Authorizer) evaluate(ctx context.Context, request pdp_model.AccessRequest) (pdp_model.AccessDecision, error) {
	requirement, ok := a.policy[request.Operation]
	if !ok {
		return pdp_model.Deny(fmt.Sprintf("operation %q is not declared", request.Operation)), nil
	}
	if requirement.Public {
		return pdp_model.Allow("public operation"), nil
	}

	identity := request.Identity
	if identity != nil && identity.TenantID != request.TenantID {
		return pdp_model.Deny("identity belongs to another tenant"), nil
	}
	if requirement.Authenticated && identity == nil {
		return pdp_model.Deny("authentication required"), nil
	}
	if len(requirement.Roles) > 0 && !hasAnyRole(identity, requirement.Roles) {
		return pdp_model.Deny("missing required role"), nil
	}

	if requirement.PrivilegeKey != "" {
		var groups []string
		if identity != nil {
			groups = identity.Groups
		}
		granted, err := a.Authorize(ctx, request.TenantID, identity, groups, requirement.PrivilegeKey, request.DataID)
		if err != nil {
			return pdp_model.AccessDecision{}, err
		}
		if !granted {
			return pdp_model.Deny("missing required privilege"), nil
		}
	}

	return pdp_model.Allow("requirements satisfied"), nil
}

func hasAnyRole(identity *model.Identity, roles []string) bool {
	for _, role := range roles {
		if identity == nil {
			if role == pdp_model.AnonymousRole {
				return true
			}
			continue
		}
		if identity.HasRole(role) {
			return true
		}
	}
	return false
}
