// service/privilege_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/gatekeeper/audit"
	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

// IPrivilegeService answers privilege checks and administers grants.
type IPrivilegeService interface {
	CheckPrivilege(ctx context.Context, tenantID string, identity *model.Identity, key, dataID string) (bool, error)
	GrantGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant, actor *model.Identity) error
	RevokeGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant, actor *model.Identity) error
	GrantUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant, actor *model.Identity) error
	RevokeUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant, actor *model.Identity) error
	FlushTenant(ctx context.Context, tenantID string, actor *model.Identity) error
}

// PrivilegeStore is satisfied by dao.PrivilegeDAO.
type PrivilegeStore interface {
	GrantGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant) error
	RevokeGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant) error
	GrantUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant) error
	RevokeUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant) error
}

// CacheFlusher is satisfied by the privilege cache.
type CacheFlusher interface {
	Flush(tenantID string)
}

// PrivilegeAuthorizer is satisfied by engine.Authorizer.
type PrivilegeAuthorizer interface {
	Authorize(ctx context.Context, tenantID string, identity *model.Identity, groups []string, key, dataID string) (bool, error)
}

// FlushBroadcaster tells other instances to flush a tenant.
type FlushBroadcaster interface {
	BroadcastFlush(ctx context.Context, tenantID string) error
}

const (
	actionGrant  = "grant"
	actionRevoke = "revoke"
	actionFlush  = "flush"
)

type PrivilegeService struct {
	store           PrivilegeStore
	cache           CacheFlusher
	authorizer      PrivilegeAuthorizer
	broadcaster     FlushBroadcaster
	auditService    audit.Service
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IPrivilegeService = &PrivilegeService{}

// NewPrivilegeService wires the service. broadcaster may be nil for a single
// instance deployment.
func NewPrivilegeService(
	store PrivilegeStore,
	cache CacheFlusher,
	authorizer PrivilegeAuthorizer,
	broadcaster FlushBroadcaster,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *PrivilegeService {
	service := &PrivilegeService{
		store:           store,
		cache:           cache,
		authorizer:      authorizer,
		broadcaster:     broadcaster,
		auditService:    auditService,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe(util.EventPrivilegesChanged, service.handlePrivilegesChanged)

	return service
}

func (s *PrivilegeService) handlePrivilegesChanged(ctx context.Context, event util.Event) error {
	change, ok := event.Payload.(util.PrivilegeChange)
	if !ok {
		return fmt.Errorf("unexpected privilege change payload %T", event.Payload)
	}

	if err := s.notificationSvc.NotifyPrivilegeChange(ctx, change); err != nil {
		logger.Warn("Failed to send privilege change notification", zap.Error(err), zap.String("tenantID", change.TenantID))
	}

	if s.broadcaster == nil {
		return nil
	}
	if err := s.broadcaster.BroadcastFlush(ctx, change.TenantID); err != nil {
		return fmt.Errorf("broadcasting flush for tenant %s: %w", change.TenantID, err)
	}
	return nil
}

// CheckPrivilege answers for identity and its groups, or for the anonymous
// group when identity is nil.
func (s *PrivilegeService) CheckPrivilege(ctx context.Context, tenantID string, identity *model.Identity, key, dataID string) (bool, error) {
	if err := s.validationUtil.ValidateTenantID(tenantID); err != nil {
		return false, err
	}
	if err := s.validationUtil.ValidateGrant(model.Grant{Key: key, DataID: dataID}); err != nil {
		return false, err
	}

	var groups []string
	if identity != nil {
		groups = identity.Groups
	}
	return s.authorizer.Authorize(ctx, tenantID, identity, groups, key, dataID)
}

func (s *PrivilegeService) GrantGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant, actor *model.Identity) error {
	return s.change(ctx, tenantID, model.Group(groupID), grant, actionGrant, actor, s.store.GrantGroupPrivilege)
}

func (s *PrivilegeService) RevokeGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant, actor *model.Identity) error {
	return s.change(ctx, tenantID, model.Group(groupID), grant, actionRevoke, actor, s.store.RevokeGroupPrivilege)
}

func (s *PrivilegeService) GrantUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant, actor *model.Identity) error {
	return s.change(ctx, tenantID, model.User(userID), grant, actionGrant, actor, s.store.GrantUserPrivilege)
}

func (s *PrivilegeService) RevokeUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant, actor *model.Identity) error {
	return s.change(ctx, tenantID, model.User(userID), grant, actionRevoke, actor, s.store.RevokeUserPrivilege)
}

type storeWrite func(ctx context.Context, tenantID, id string, grant model.Grant) error

// change writes to the store, then flushes the tenant locally before
// returning, so the writer's next check sees the new grants.
func (s *PrivilegeService) change(ctx context.Context, tenantID string, principal model.Principal, grant model.Grant, action string, actor *model.Identity, write storeWrite) error {
	start := time.Now()
	if err := s.validationUtil.ValidateTenantID(tenantID); err != nil {
		return err
	}
	if err := s.validationUtil.ValidatePrincipalID(principal.ID); err != nil {
		return err
	}
	if err := s.validationUtil.ValidateGrant(grant); err != nil {
		return err
	}

	if err := write(ctx, tenantID, principal.ID, grant); err != nil {
		return fmt.Errorf("%w: %s privilege: %w", gk_errors.ErrStoreUnavailable, action, err)
	}

	s.cache.Flush(tenantID)
	s.eventBus.Publish(ctx, util.EventPrivilegesChanged, util.PrivilegeChange{
		TenantID:  tenantID,
		Principal: principal.String(),
		Action:    action,
		Key:       grant.Key,
		DataID:    grant.DataID,
	})

	auditAction := audit.ActionPrivilegeGranted
	if action == actionRevoke {
		auditAction = audit.ActionPrivilegeRevoked
	}
	s.audit(ctx, actor, audit.AuditLog{
		TenantID:     tenantID,
		Action:       auditAction,
		Principal:    principal.String(),
		PrivilegeKey: grant.Key,
		DataID:       grant.DataID,
		Success:      true,
	})

	logger.Info("Privilege changed",
		zap.String("tenantID", tenantID),
		zap.String("action", action),
		zap.Stringer("principal", principal),
		zap.String("key", grant.Key),
		zap.String("dataId", grant.DataID),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// FlushTenant discards the tenant's cached privileges on every instance.
func (s *PrivilegeService) FlushTenant(ctx context.Context, tenantID string, actor *model.Identity) error {
	if err := s.validationUtil.ValidateTenantID(tenantID); err != nil {
		return err
	}

	s.cache.Flush(tenantID)
	s.eventBus.Publish(ctx, util.EventPrivilegesChanged, util.PrivilegeChange{
		TenantID: tenantID,
		Action:   actionFlush,
	})
	s.audit(ctx, actor, audit.AuditLog{
		TenantID: tenantID,
		Action:   audit.ActionPrivilegesFlushed,
		Success:  true,
	})
	return nil
}

func (s *PrivilegeService) audit(ctx context.Context, actor *model.Identity, log audit.AuditLog) {
	if actor != nil {
		log.AccountID = actor.UserID
		log.Account = actor.Email
		log.SessionID = actor.SessionID
	}
	if err := s.auditService.LogAccess(ctx, log); err != nil {
		logger.Error("Failed to write audit log",
			zap.Error(err),
			zap.String("tenantID", log.TenantID),
			zap.String("action", log.Action))
	}
}
