// service/security_service_test.go
package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/gatekeeper/audit"
	"github.com/dev-mohitbeniwal/gatekeeper/dao"
	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	"github.com/dev-mohitbeniwal/gatekeeper/service"
	mock_service "github.com/dev-mohitbeniwal/gatekeeper/test/mock"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

type clock struct {
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *clock) Set(t time.Time) { c.now = t }

type securityFixture struct {
	accounts *mock_service.MockAccountDirectory
	tokens   *dao.MemoryTokenDAO
	clock    *clock
	bus      *util.EventBus
	svc      *service.SecurityService
}

func newSecurityFixture(t *testing.T, cfg service.SecurityConfig) *securityFixture {
	t.Helper()
	f := &securityFixture{
		accounts: &mock_service.MockAccountDirectory{},
		tokens:   dao.NewMemoryTokenDAO(),
		clock:    newClock(),
		bus:      util.NewEventBus(),
	}
	if cfg.TokenLifetime == 0 {
		cfg.TokenLifetime = 60 * time.Minute
	}
	cfg.Now = f.clock.Now
	f.svc = service.NewSecurityService(f.accounts, f.tokens, audit.Discard{}, util.NewValidationUtil(),
		util.NewNotificationService(), f.bus, cfg)
	return f
}

func bobAccount(t *testing.T, tenantID string) *model.Account {
	t.Helper()
	hash, err := util.HashPassword("secret")
	require.NoError(t, err)
	return &model.Account{ID: "bob", TenantID: tenantID, Email: "bob@x.com", PasswordHash: hash}
}

func login(tenantID, account, password string) model.LoginRequest {
	return model.LoginRequest{TenantID: tenantID, Account: account, Password: password}
}

func TestSecurityService(t *testing.T) {
	ctx := context.Background()

	t.Run("RequestAccessToken_RoundTrip", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{AvailableRoles: []string{"Administrator", "user"}})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return([]string{"Administrator", "editors"}, nil)

		result, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)
		assert.Len(t, result.AccessToken, util.AccessTokenBytes*2)
		assert.Equal(t, f.clock.Now().Add(60*time.Minute), result.ExpirationTime)

		identity, err := f.svc.Authenticate(ctx, "acme", result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "acme", identity.TenantID)
		assert.Equal(t, "bob", identity.UserID)
		assert.Equal(t, "bob@x.com", identity.Email)
		assert.NotEmpty(t, identity.SessionID)
		assert.Equal(t, []string{"Administrator", "editors"}, identity.Groups)
		assert.Equal(t, []string{"administrator"}, identity.Roles)
	})

	t.Run("RequestAccessToken_StoresOnlyHash", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		result, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)

		byPlain, err := f.tokens.GetToken(ctx, "acme", result.AccessToken)
		require.NoError(t, err)
		assert.Nil(t, byPlain)

		byHash, err := f.tokens.GetToken(ctx, "acme", util.HashSecret(result.AccessToken))
		require.NoError(t, err)
		require.NotNil(t, byHash)
		assert.Equal(t, "bob", byHash.AccountID)
	})

	t.Run("InvalidateAccessToken_Success", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		result, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)

		require.NoError(t, f.svc.InvalidateAccessToken(ctx, "acme", "bob@x.com", result.AccessToken))

		_, err = f.svc.Authenticate(ctx, "acme", result.AccessToken)
		assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)

		assert.NoError(t, f.svc.InvalidateAccessToken(ctx, "acme", "bob@x.com", result.AccessToken),
			"invalidating twice is a no-op")
	})

	t.Run("InvalidateAccessToken_UnknownToken", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		assert.NoError(t, f.svc.InvalidateAccessToken(ctx, "acme", "bob@x.com", "never-issued"))
	})

	t.Run("InvalidateAccessToken_OtherAccountIsNoop", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		result, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)

		require.NoError(t, f.svc.InvalidateAccessToken(ctx, "acme", "eve@x.com", result.AccessToken))

		_, err = f.svc.Authenticate(ctx, "acme", result.AccessToken)
		assert.NoError(t, err)
	})

	t.Run("Authenticate_Expiry", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{TokenLifetime: 60 * time.Minute})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		issuedAt := f.clock.Now()
		result, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)

		f.clock.Set(issuedAt.Add(59 * time.Minute))
		_, err = f.svc.Authenticate(ctx, "acme", result.AccessToken)
		assert.NoError(t, err)

		f.clock.Set(issuedAt.Add(61 * time.Minute))
		_, err = f.svc.Authenticate(ctx, "acme", result.AccessToken)
		assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)

		binding, err := f.tokens.GetToken(ctx, "acme", util.HashSecret(result.AccessToken))
		require.NoError(t, err)
		assert.Nil(t, binding, "expired binding is removed on lookup")
	})

	t.Run("Authenticate_ExpirationBoundary", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{TokenLifetime: time.Minute})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		result, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)

		f.clock.Set(result.ExpirationTime.Add(-time.Nanosecond))
		_, err = f.svc.Authenticate(ctx, "acme", result.AccessToken)
		assert.NoError(t, err)

		f.clock.Set(result.ExpirationTime)
		_, err = f.svc.Authenticate(ctx, "acme", result.AccessToken)
		assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)
	})

	t.Run("Authenticate_TenantIsolation", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		result, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)

		_, err = f.svc.Authenticate(ctx, "globex", result.AccessToken)
		assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)
	})

	t.Run("Authenticate_MissingToken", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		_, err := f.svc.Authenticate(ctx, "acme", "")
		assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)

		_, err = f.svc.Authenticate(ctx, "acme", "garbage")
		assert.ErrorIs(t, err, gk_errors.ErrUnauthenticated)
	})

	t.Run("RequestAccessToken_AccountNotFound", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		f.accounts.On("GetAccount", mock.Anything, "acme", "nobody@x.com").Return(nil, nil)

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "nobody@x.com", "secret"))
		assert.ErrorIs(t, err, gk_errors.ErrAccountNotFound)
	})

	t.Run("RequestAccessToken_AccountFromOtherTenant", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "globex"), nil)

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		assert.ErrorIs(t, err, gk_errors.ErrAccountNotFound)
	})

	t.Run("RequestAccessToken_DeviceAuthRequired", func(t *testing.T) {
		for _, password := range []string{"secret", "wrong"} {
			f := newSecurityFixture(t, service.SecurityConfig{})
			account := bobAccount(t, "acme")
			account.DeviceCount = 1
			f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(account, nil)

			result, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", password))
			assert.ErrorIs(t, err, gk_errors.ErrDeviceAuthRequired)
			assert.Nil(t, result)
			f.accounts.AssertNotCalled(t, "UpdateLoginState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("RequestAccessToken_InvalidCredentials", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{MaxFailedLogins: 5})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("UpdateLoginState", mock.Anything, "acme", "bob", 1, false).Return(nil).Once()

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "wrong"))
		assert.ErrorIs(t, err, gk_errors.ErrInvalidCredentials)
		assert.True(t, gk_errors.IsLoginFailure(err))
		f.accounts.AssertExpectations(t)
	})

	t.Run("RequestAccessToken_LocksOutAfterMaxFailures", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{MaxFailedLogins: 2})
		account := bobAccount(t, "acme")
		account.FailedLoginCount = 2
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(account, nil)
		f.accounts.On("UpdateLoginState", mock.Anything, "acme", "bob", 3, true).Return(nil).Once()

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "wrong"))
		assert.ErrorIs(t, err, gk_errors.ErrInvalidCredentials)
		f.bus.Wait()
		f.accounts.AssertExpectations(t)
	})

	t.Run("RequestAccessToken_LockedOut", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		account := bobAccount(t, "acme")
		account.LockedOut = true
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(account, nil)

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		assert.ErrorIs(t, err, gk_errors.ErrAccountLockedOut)
	})

	t.Run("RequestAccessToken_ResetsFailedCount", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		account := bobAccount(t, "acme")
		account.FailedLoginCount = 3
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(account, nil)
		f.accounts.On("UpdateLoginState", mock.Anything, "acme", "bob", 0, false).Return(nil).Once()
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)
		f.accounts.AssertExpectations(t)
	})

	t.Run("RequestAccessToken_LegacyHash", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		account := &model.Account{ID: "bob", TenantID: "acme", Email: "bob@x.com", PasswordHash: util.HashSecret("bob@x.com:secret")}
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(account, nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		assert.NoError(t, err)
	})

	t.Run("RequestAccessToken_InvalidRequest", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})

		_, err := f.svc.RequestAccessToken(ctx, login("", "bob@x.com", "secret"))
		assert.ErrorIs(t, err, gk_errors.ErrTenantRequired)

		_, err = f.svc.RequestAccessToken(ctx, login("acme", "", "secret"))
		assert.ErrorIs(t, err, gk_errors.ErrInvalidLoginRequest)
	})

	t.Run("RequestAccessToken_AccountStoreUnavailable", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(nil, errors.New("connection refused"))

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		assert.ErrorIs(t, err, gk_errors.ErrStoreUnavailable)
		assert.False(t, gk_errors.IsLoginFailure(err))
	})

	t.Run("SweepExpired", func(t *testing.T) {
		f := newSecurityFixture(t, service.SecurityConfig{TokenLifetime: time.Minute})
		f.accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
		f.accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

		_, err := f.svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
		require.NoError(t, err)

		removed, err := f.svc.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, removed)

		f.clock.Advance(2 * time.Minute)
		removed, err = f.svc.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	})
}

func TestSecurityServiceTokenStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	accounts := &mock_service.MockAccountDirectory{}
	tokens := &mock_service.MockTokenStore{}
	svc := service.NewSecurityService(accounts, tokens, audit.Discard{}, util.NewValidationUtil(),
		util.NewNotificationService(), util.NewEventBus(), service.SecurityConfig{})

	storeErr := errors.New("redis: connection refused")
	tokens.On("GetToken", mock.Anything, "acme", mock.Anything).Return(nil, storeErr)
	tokens.On("SaveToken", mock.Anything, mock.Anything).Return(storeErr)
	accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
	accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)

	_, err := svc.Authenticate(ctx, "acme", "token")
	assert.ErrorIs(t, err, gk_errors.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, gk_errors.ErrUnauthenticated)

	err = svc.InvalidateAccessToken(ctx, "acme", "bob@x.com", "token")
	assert.ErrorIs(t, err, gk_errors.ErrStoreUnavailable)

	_, err = svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
	assert.ErrorIs(t, err, gk_errors.ErrStoreUnavailable)
}

func TestSecurityServiceAuditsLogins(t *testing.T) {
	ctx := context.Background()
	accounts := &mock_service.MockAccountDirectory{}
	auditSvc := &mock_service.MockAuditService{}
	svc := service.NewSecurityService(accounts, dao.NewMemoryTokenDAO(), auditSvc, util.NewValidationUtil(),
		util.NewNotificationService(), util.NewEventBus(), service.SecurityConfig{})

	accounts.On("GetAccount", mock.Anything, "acme", "bob@x.com").Return(bobAccount(t, "acme"), nil)
	accounts.On("GetUserGroups", mock.Anything, "acme", "bob").Return(nil, nil)
	accounts.On("UpdateLoginState", mock.Anything, "acme", "bob", 1, false).Return(nil)
	auditSvc.On("LogAccess", mock.Anything, mock.MatchedBy(func(log audit.AuditLog) bool {
		return log.Action == audit.ActionLoginSuccess && log.Success && log.AccountID == "bob"
	})).Return(nil).Once()
	auditSvc.On("LogAccess", mock.Anything, mock.MatchedBy(func(log audit.AuditLog) bool {
		return log.Action == audit.ActionLoginFailure && !log.Success && log.TenantID == "acme"
	})).Return(errors.New("elasticsearch down")).Once()

	_, err := svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "secret"))
	require.NoError(t, err)

	_, err = svc.RequestAccessToken(ctx, login("acme", "bob@x.com", "wrong"))
	assert.ErrorIs(t, err, gk_errors.ErrInvalidCredentials, "audit failures do not change the outcome")

	auditSvc.AssertExpectations(t)
}
