// service/security_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/gatekeeper/audit"
	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/metrics"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	"github.com/dev-mohitbeniwal/gatekeeper/util"
)

const (
	DefaultTokenLifetime   = 15 * time.Minute
	DefaultMaxFailedLogins = 5
	DefaultLookupTimeout   = 2 * time.Second
)

// ISecurityService issues, validates and revokes access tokens.
type ISecurityService interface {
	RequestAccessToken(ctx context.Context, req model.LoginRequest) (*model.AccessTokenResult, error)
	InvalidateAccessToken(ctx context.Context, tenantID, account, token string) error
	Authenticate(ctx context.Context, tenantID, token string) (*model.Identity, error)
	SweepExpired(ctx context.Context) (int, error)
	StartSweeper(ctx context.Context)
}

// AccountDirectory is satisfied by dao.AccountDAO.
type AccountDirectory interface {
	GetAccount(ctx context.Context, tenantID, account string) (*model.Account, error)
	GetUserGroups(ctx context.Context, tenantID, userID string) ([]string, error)
	UpdateLoginState(ctx context.Context, tenantID, accountID string, failedCount int, lockedOut bool) error
}

// TokenStore is satisfied by dao.TokenDAO and dao.MemoryTokenDAO.
type TokenStore interface {
	SaveToken(ctx context.Context, binding model.TokenBinding) error
	GetToken(ctx context.Context, tenantID, tokenHash string) (*model.TokenBinding, error)
	DeleteToken(ctx context.Context, tenantID, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type SecurityConfig struct {
	TokenLifetime   time.Duration
	MaxFailedLogins int
	// AvailableRoles are the group names exposed as identity roles.
	AvailableRoles []string
	LookupTimeout  time.Duration
	SweepInterval  time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c SecurityConfig) withDefaults() SecurityConfig {
	if c.TokenLifetime <= 0 {
		c.TokenLifetime = DefaultTokenLifetime
	}
	if c.MaxFailedLogins <= 0 {
		c.MaxFailedLogins = DefaultMaxFailedLogins
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = DefaultLookupTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// SecurityService implements the password login flow and the bearer token
// lifecycle. Tokens are opaque; only their hash is stored.
type SecurityService struct {
	accounts        AccountDirectory
	tokens          TokenStore
	auditService    audit.Service
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
	cfg             SecurityConfig
	roles           map[string]struct{}
}

var _ ISecurityService = &SecurityService{}

func NewSecurityService(
	accounts AccountDirectory,
	tokens TokenStore,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	cfg SecurityConfig,
) *SecurityService {
	cfg = cfg.withDefaults()
	roles := make(map[string]struct{}, len(cfg.AvailableRoles))
	for _, role := range cfg.AvailableRoles {
		roles[strings.ToLower(role)] = struct{}{}
	}

	service := &SecurityService{
		accounts:        accounts,
		tokens:          tokens,
		auditService:    auditService,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		cfg:             cfg,
		roles:           roles,
	}

	eventBus.Subscribe(util.EventAccountLockedOut, service.handleAccountLockedOut)

	return service
}

func (s *SecurityService) handleAccountLockedOut(ctx context.Context, event util.Event) error {
	notice, ok := event.Payload.(util.LockoutNotice)
	if !ok {
		return fmt.Errorf("unexpected lockout payload %T", event.Payload)
	}
	return s.notificationSvc.NotifyAccountLockedOut(ctx, notice)
}

// RequestAccessToken verifies the password and issues a token valid for the
// configured lifetime. The plaintext token appears only in the result.
func (s *SecurityService) RequestAccessToken(ctx context.Context, req model.LoginRequest) (*model.AccessTokenResult, error) {
	start := time.Now()
	if err := s.validationUtil.ValidateTenantID(req.TenantID); err != nil {
		return nil, err
	}
	if err := s.validationUtil.ValidateLoginRequest(req); err != nil {
		return nil, err
	}

	account, err := s.getAccount(ctx, req.TenantID, req.Account)
	if err != nil {
		return nil, err
	}
	if account == nil {
		s.loginFailed(ctx, req, nil, "account not found")
		return nil, gk_errors.ErrAccountNotFound
	}
	if account.DeviceCount > 0 {
		s.loginFailed(ctx, req, account, "device authentication required")
		return nil, gk_errors.ErrDeviceAuthRequired
	}
	if account.LockedOut {
		s.loginFailed(ctx, req, account, "account locked out")
		return nil, gk_errors.ErrAccountLockedOut
	}

	if !util.VerifyPassword(account.PasswordHash, req.Password, account.ID, account.Email) {
		if err := s.recordFailedLogin(ctx, req.TenantID, account); err != nil {
			return nil, err
		}
		s.loginFailed(ctx, req, account, "invalid credentials")
		return nil, gk_errors.ErrInvalidCredentials
	}

	if account.FailedLoginCount > 0 {
		if err := s.updateLoginState(ctx, req.TenantID, account.ID, 0, false); err != nil {
			return nil, err
		}
	}

	groups, err := s.getUserGroups(ctx, req.TenantID, account.ID)
	if err != nil {
		return nil, err
	}

	token, err := util.GenerateAccessToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gk_errors.ErrInternalServer, err)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := s.cfg.Now()
	binding := model.TokenBinding{
		TokenHash:      util.HashSecret(token),
		TenantID:       req.TenantID,
		AccountID:      account.ID,
		AccountEmail:   account.Email,
		SessionID:      sessionID,
		Groups:         groups,
		IssuedAt:       now,
		ExpirationTime: now.Add(s.cfg.TokenLifetime),
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	if err := s.tokens.SaveToken(storeCtx, binding); err != nil {
		return nil, fmt.Errorf("%w: saving token: %w", gk_errors.ErrStoreUnavailable, err)
	}

	metrics.TokenEvents.WithLabelValues("issued").Inc()
	s.audit(ctx, audit.AuditLog{
		TenantID:   req.TenantID,
		AccountID:  account.ID,
		Account:    req.Account,
		SessionID:  sessionID,
		RemoteAddr: req.RemoteAddr,
		Action:     audit.ActionLoginSuccess,
		Success:    true,
	})

	logger.Info("Access token issued",
		zap.String("tenantID", req.TenantID),
		zap.String("accountID", account.ID),
		zap.String("sessionID", sessionID),
		logger.TokenHash(binding.TokenHash),
		zap.Time("expirationTime", binding.ExpirationTime),
		zap.Duration("duration", time.Since(start)))

	return &model.AccessTokenResult{
		AccessToken:    token,
		ExpirationTime: binding.ExpirationTime,
	}, nil
}

// InvalidateAccessToken destroys the binding for token. Unknown tokens, and
// tokens bound to another account, are a no-op.
func (s *SecurityService) InvalidateAccessToken(ctx context.Context, tenantID, account, token string) error {
	if err := s.validationUtil.ValidateTenantID(tenantID); err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	hash := util.HashSecret(token)
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	binding, err := s.tokens.GetToken(storeCtx, tenantID, hash)
	if err != nil {
		return fmt.Errorf("%w: looking up token: %w", gk_errors.ErrStoreUnavailable, err)
	}
	if binding == nil {
		logger.Debug("Invalidate for unknown token", zap.String("tenantID", tenantID), logger.TokenHash(hash))
		return nil
	}
	if !boundTo(binding, account) {
		logger.Warn("Invalidate for token bound to another account",
			zap.String("tenantID", tenantID),
			logger.TokenHash(hash))
		return nil
	}

	if err := s.tokens.DeleteToken(storeCtx, tenantID, hash); err != nil {
		return fmt.Errorf("%w: deleting token: %w", gk_errors.ErrStoreUnavailable, err)
	}

	metrics.TokenEvents.WithLabelValues("invalidated").Inc()
	s.audit(ctx, audit.AuditLog{
		TenantID:  tenantID,
		AccountID: binding.AccountID,
		Account:   account,
		SessionID: binding.SessionID,
		Action:    audit.ActionTokenInvalidated,
		Success:   true,
	})
	logger.Info("Access token invalidated",
		zap.String("tenantID", tenantID),
		zap.String("accountID", binding.AccountID),
		logger.TokenHash(hash))
	return nil
}

// Authenticate resolves a bearer token to the identity bound at issuance. A
// token is accepted strictly before its expiration time.
func (s *SecurityService) Authenticate(ctx context.Context, tenantID, token string) (*model.Identity, error) {
	if tenantID == "" {
		return nil, gk_errors.ErrTenantRequired
	}
	if token == "" {
		return nil, gk_errors.ErrUnauthenticated
	}

	hash := util.HashSecret(token)
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	binding, err := s.tokens.GetToken(storeCtx, tenantID, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up token: %w", gk_errors.ErrStoreUnavailable, err)
	}
	if binding == nil || binding.TenantID != tenantID {
		metrics.TokenEvents.WithLabelValues("rejected").Inc()
		return nil, gk_errors.ErrUnauthenticated
	}

	if binding.Expired(s.cfg.Now()) {
		metrics.TokenEvents.WithLabelValues("expired").Inc()
		if err := s.tokens.DeleteToken(storeCtx, tenantID, hash); err != nil {
			logger.Warn("Failed to remove expired token", zap.Error(err), logger.TokenHash(hash))
		}
		return nil, gk_errors.ErrUnauthenticated
	}

	metrics.TokenEvents.WithLabelValues("authenticated").Inc()
	return &model.Identity{
		TenantID:  binding.TenantID,
		UserID:    binding.AccountID,
		Email:     binding.AccountEmail,
		SessionID: binding.SessionID,
		Groups:    binding.Groups,
		Roles:     s.rolesFor(binding.Groups),
	}, nil
}

// SweepExpired removes expired bindings from stores that do not expire them
// on their own.
func (s *SecurityService) SweepExpired(ctx context.Context) (int, error) {
	removed, err := s.tokens.DeleteExpired(ctx, s.cfg.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: sweeping tokens: %w", gk_errors.ErrStoreUnavailable, err)
	}
	if removed > 0 {
		metrics.TokenEvents.WithLabelValues("expired").Add(float64(removed))
		logger.Debug("Expired access tokens swept", zap.Int("removed", removed))
	}
	return removed, nil
}

// StartSweeper runs SweepExpired every SweepInterval until ctx ends. It does
// nothing when the interval is not positive.
func (s *SecurityService) StartSweeper(ctx context.Context) {
	if s.cfg.SweepInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepExpired(ctx); err != nil {
					logger.Error("Token sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

func (s *SecurityService) getAccount(ctx context.Context, tenantID, account string) (*model.Account, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	acc, err := s.accounts.GetAccount(lookupCtx, tenantID, account)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up account: %w", gk_errors.ErrStoreUnavailable, err)
	}
	if acc != nil && acc.TenantID != "" && acc.TenantID != tenantID {
		return nil, nil
	}
	return acc, nil
}

func (s *SecurityService) getUserGroups(ctx context.Context, tenantID, accountID string) ([]string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	groups, err := s.accounts.GetUserGroups(lookupCtx, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up groups: %w", gk_errors.ErrStoreUnavailable, err)
	}
	return groups, nil
}

func (s *SecurityService) updateLoginState(ctx context.Context, tenantID, accountID string, failed int, locked bool) error {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	if err := s.accounts.UpdateLoginState(lookupCtx, tenantID, accountID, failed, locked); err != nil {
		return fmt.Errorf("%w: updating login state: %w", gk_errors.ErrStoreUnavailable, err)
	}
	return nil
}

// recordFailedLogin counts a password mismatch and locks the account once
// the count exceeds MaxFailedLogins.
func (s *SecurityService) recordFailedLogin(ctx context.Context, tenantID string, account *model.Account) error {
	failed := account.FailedLoginCount + 1
	locked := failed > s.cfg.MaxFailedLogins
	if err := s.updateLoginState(ctx, tenantID, account.ID, failed, locked); err != nil {
		return err
	}

	if locked {
		s.eventBus.Publish(ctx, util.EventAccountLockedOut, util.LockoutNotice{
			TenantID:  tenantID,
			AccountID: account.ID,
			Email:     account.Email,
			Failures:  failed,
		})
	}
	return nil
}

func (s *SecurityService) loginFailed(ctx context.Context, req model.LoginRequest, account *model.Account, reason string) {
	metrics.TokenEvents.WithLabelValues("login_failed").Inc()
	log := audit.AuditLog{
		TenantID:   req.TenantID,
		Account:    req.Account,
		SessionID:  req.SessionID,
		RemoteAddr: req.RemoteAddr,
		Action:     audit.ActionLoginFailure,
		Success:    false,
	}
	if account != nil {
		log.AccountID = account.ID
	}
	s.audit(ctx, log)
	logger.Info("Password login failed",
		zap.String("tenantID", req.TenantID),
		zap.String("reason", reason),
		zap.String("remoteAddr", req.RemoteAddr))
}

func (s *SecurityService) audit(ctx context.Context, log audit.AuditLog) {
	if err := s.auditService.LogAccess(ctx, log); err != nil {
		logger.Error("Failed to write audit log",
			zap.Error(err),
			zap.String("tenantID", log.TenantID),
			zap.String("action", log.Action))
	}
}

func (s *SecurityService) rolesFor(groups []string) []string {
	roles := []string{}
	for _, group := range groups {
		role := strings.ToLower(group)
		if _, ok := s.roles[role]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}

func boundTo(binding *model.TokenBinding, account string) bool {
	if account == "" {
		return true
	}
	return account == binding.AccountID || strings.EqualFold(account, binding.AccountEmail)
}
