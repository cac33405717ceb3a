// service/privilege_service_test.go
package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/gatekeeper/audit"
	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	"github.com/dev-mohitbeniwal/gatekeeper/pdp/cache"
	"github.com/dev-mohitbeniwal/gatekeeper/pdp/engine"
	"github.com/dev-mohitbeniwal/gatekeeper/service"
	mock_service "github.com/dev-mohitbeniwal/gatekeeper/test/mock"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

// memoryPrivileges is a privilege store that also serves cache loads.
type memoryPrivileges struct {
	mu     sync.Mutex
	grants map[string][]model.Grant
	err    error
}

func newMemoryPrivileges() *memoryPrivileges {
	return &memoryPrivileges{grants: make(map[string][]model.Grant)}
}

func privilegeKey(tenantID string, p model.Principal) string {
	return tenantID + "/" + p.String()
}

func (m *memoryPrivileges) load(tenantID string, p model.Principal) ([]model.Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Grant(nil), m.grants[privilegeKey(tenantID, p)]...), nil
}

func (m *memoryPrivileges) put(tenantID string, p model.Principal, grant model.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	key := privilegeKey(tenantID, p)
	m.grants[key] = append(m.grants[key], grant)
	return nil
}

func (m *memoryPrivileges) remove(tenantID string, p model.Principal, grant model.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	key := privilegeKey(tenantID, p)
	kept := m.grants[key][:0]
	for _, g := range m.grants[key] {
		if g != grant {
			kept = append(kept, g)
		}
	}
	m.grants[key] = kept
	return nil
}

func (m *memoryPrivileges) LoadGroupPrivileges(_ context.Context, tenantID, groupID string) ([]model.Grant, error) {
	return m.load(tenantID, model.Group(groupID))
}

func (m *memoryPrivileges) LoadUserPrivileges(_ context.Context, tenantID, userID string) ([]model.Grant, error) {
	return m.load(tenantID, model.User(userID))
}

func (m *memoryPrivileges) GrantGroupPrivilege(_ context.Context, tenantID, groupID string, grant model.Grant) error {
	return m.put(tenantID, model.Group(groupID), grant)
}

func (m *memoryPrivileges) RevokeGroupPrivilege(_ context.Context, tenantID, groupID string, grant model.Grant) error {
	return m.remove(tenantID, model.Group(groupID), grant)
}

func (m *memoryPrivileges) GrantUserPrivilege(_ context.Context, tenantID, userID string, grant model.Grant) error {
	return m.put(tenantID, model.User(userID), grant)
}

func (m *memoryPrivileges) RevokeUserPrivilege(_ context.Context, tenantID, userID string, grant model.Grant) error {
	return m.remove(tenantID, model.User(userID), grant)
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	tenants []string
}

func (b *recordingBroadcaster) BroadcastFlush(_ context.Context, tenantID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tenants = append(b.tenants, tenantID)
	return nil
}

type privilegeFixture struct {
	store       *memoryPrivileges
	cache       *cache.PrivilegeCache
	broadcaster *recordingBroadcaster
	bus         *util.EventBus
	svc         *service.PrivilegeService
}

func newPrivilegeFixture(auditSvc audit.Service) *privilegeFixture {
	f := &privilegeFixture{
		store:       newMemoryPrivileges(),
		broadcaster: &recordingBroadcaster{},
		bus:         util.NewEventBus(),
	}
	f.cache = cache.NewPrivilegeCache(f.store, cache.Config{})
	authorizer := engine.NewAuthorizer(f.cache, "anonymous", nil)
	f.svc = service.NewPrivilegeService(f.store, f.cache, authorizer, f.broadcaster, auditSvc,
		util.NewValidationUtil(), util.NewNotificationService(), f.bus)
	return f
}

func TestPrivilegeService(t *testing.T) {
	ctx := context.Background()
	read := model.Grant{Key: "doc.read", DataID: "d1"}
	alice := &model.Identity{TenantID: "acme", UserID: "alice", Groups: []string{"editors"}}

	t.Run("GrantGroupPrivilege_VisibleImmediately", func(t *testing.T) {
		f := newPrivilegeFixture(audit.Discard{})

		ok, err := f.svc.CheckPrivilege(ctx, "acme", alice, "doc.read", "d1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, f.svc.GrantGroupPrivilege(ctx, "acme", "editors", read, nil))

		ok, err = f.svc.CheckPrivilege(ctx, "acme", alice, "doc.read", "d1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.svc.CheckPrivilege(ctx, "acme", alice, "doc.read", "d2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RevokeUserPrivilege_VisibleImmediately", func(t *testing.T) {
		f := newPrivilegeFixture(audit.Discard{})
		require.NoError(t, f.svc.GrantUserPrivilege(ctx, "acme", "alice", read, nil))

		ok, err := f.svc.CheckPrivilege(ctx, "acme", alice, "doc.read", "d1")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, f.svc.RevokeUserPrivilege(ctx, "acme", "alice", read, nil))

		ok, err = f.svc.CheckPrivilege(ctx, "acme", alice, "doc.read", "d1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RevokeGroupPrivilege_OtherTenantUnaffected", func(t *testing.T) {
		f := newPrivilegeFixture(audit.Discard{})
		bob := &model.Identity{TenantID: "globex", UserID: "bob", Groups: []string{"editors"}}
		require.NoError(t, f.svc.GrantGroupPrivilege(ctx, "acme", "editors", read, nil))
		require.NoError(t, f.svc.GrantGroupPrivilege(ctx, "globex", "editors", read, nil))

		require.NoError(t, f.svc.RevokeGroupPrivilege(ctx, "acme", "editors", read, nil))

		ok, err := f.svc.CheckPrivilege(ctx, "acme", alice, "doc.read", "d1")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = f.svc.CheckPrivilege(ctx, "globex", bob, "doc.read", "d1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CheckPrivilege_Anonymous", func(t *testing.T) {
		f := newPrivilegeFixture(audit.Discard{})
		require.NoError(t, f.svc.GrantGroupPrivilege(ctx, "acme", "anonymous", model.Grant{Key: "doc.read", DataID: model.WildcardDataID}, nil))

		ok, err := f.svc.CheckPrivilege(ctx, "acme", nil, "doc.read", "d9")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("GrantGroupPrivilege_BroadcastsFlush", func(t *testing.T) {
		f := newPrivilegeFixture(audit.Discard{})
		require.NoError(t, f.svc.GrantGroupPrivilege(ctx, "acme", "editors", read, nil))
		f.bus.Wait()

		assert.Equal(t, []string{"acme"}, f.broadcaster.tenants)
	})

	t.Run("GrantGroupPrivilege_InvalidGrant", func(t *testing.T) {
		f := newPrivilegeFixture(audit.Discard{})

		err := f.svc.GrantGroupPrivilege(ctx, "acme", "editors", model.Grant{Key: "doc.read"}, nil)
		assert.ErrorIs(t, err, gk_errors.ErrInvalidGrant)

		err = f.svc.GrantGroupPrivilege(ctx, "acme", "", read, nil)
		assert.ErrorIs(t, err, gk_errors.ErrPrincipalRequired)

		err = f.svc.GrantGroupPrivilege(ctx, "", "editors", read, nil)
		assert.ErrorIs(t, err, gk_errors.ErrTenantRequired)
	})

	t.Run("GrantUserPrivilege_StoreUnavailable", func(t *testing.T) {
		f := newPrivilegeFixture(audit.Discard{})
		f.store.err = errors.New("neo4j unavailable")

		err := f.svc.GrantUserPrivilege(ctx, "acme", "alice", read, nil)
		assert.ErrorIs(t, err, gk_errors.ErrStoreUnavailable)

		_, err = f.svc.CheckPrivilege(ctx, "acme", alice, "doc.read", "d1")
		assert.ErrorIs(t, err, gk_errors.ErrStoreUnavailable)
	})

	t.Run("FlushTenant", func(t *testing.T) {
		f := newPrivilegeFixture(audit.Discard{})
		require.NoError(t, f.store.GrantUserPrivilege(ctx, "acme", "alice", read))

		_, err := f.svc.CheckPrivilege(ctx, "acme", alice, "doc.read", "d1")
		require.NoError(t, err)
		assert.Positive(t, f.cache.Len("acme"))

		require.NoError(t, f.svc.FlushTenant(ctx, "acme", alice))
		assert.Zero(t, f.cache.Len("acme"))
		f.bus.Wait()
		assert.Equal(t, []string{"acme"}, f.broadcaster.tenants)
	})

	t.Run("GrantGroupPrivilege_Audited", func(t *testing.T) {
		auditSvc := &mock_service.MockAuditService{}
		f := newPrivilegeFixture(auditSvc)
		admin := &model.Identity{TenantID: "acme", UserID: "root", Email: "root@acme.test"}
		auditSvc.On("LogAccess", mock.Anything, mock.MatchedBy(func(log audit.AuditLog) bool {
			return log.Action == audit.ActionPrivilegeGranted &&
				log.Principal == "group:editors" &&
				log.PrivilegeKey == "doc.read" &&
				log.AccountID == "root"
		})).Return(nil).Once()

		require.NoError(t, f.svc.GrantGroupPrivilege(ctx, "acme", "editors", read, admin))
		auditSvc.AssertExpectations(t)
	})
}
