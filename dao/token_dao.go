// dao/token_dao.go
package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
)

// tokenGrace keeps a binding in redis slightly past its expiration so that
// an expired token is reported as expired rather than unknown.
const tokenGrace = time.Minute

// TokenDAO stores token bindings in redis keyed by tenant and token hash.
type TokenDAO struct {
	Client *redis.Client
	now    func() time.Time
}

func NewTokenDAO(client *redis.Client) *TokenDAO {
	return &TokenDAO{Client: client, now: time.Now}
}

func tokenKey(tenantID, tokenHash string) string {
	return fmt.Sprintf("token:%s:%s", tenantID, tokenHash)
}

func (dao *TokenDAO) SaveToken(ctx context.Context, binding model.TokenBinding) error {
	data, err := json.Marshal(binding)
	if err != nil {
		return fmt.Errorf("failed to marshal token binding: %w", err)
	}

	ttl := binding.ExpirationTime.Sub(dao.now()) + tokenGrace
	if ttl <= 0 {
		ttl = tokenGrace
	}

	key := tokenKey(binding.TenantID, binding.TokenHash)
	if err := dao.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Error("Failed to save token binding",
			zap.Error(err),
			zap.String("tenantId", binding.TenantID),
			logger.TokenHash(binding.TokenHash))
		return fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}
	return nil
}

// GetToken returns (nil, nil) when no binding exists.
func (dao *TokenDAO) GetToken(ctx context.Context, tenantID, tokenHash string) (*model.TokenBinding, error) {
	data, err := dao.Client.Get(ctx, tokenKey(tenantID, tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to get token binding",
			zap.Error(err),
			zap.String("tenantId", tenantID),
			logger.TokenHash(tokenHash))
		return nil, fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}

	var binding model.TokenBinding
	if err := json.Unmarshal(data, &binding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token binding: %w", err)
	}
	return &binding, nil
}

func (dao *TokenDAO) DeleteToken(ctx context.Context, tenantID, tokenHash string) error {
	if err := dao.Client.Del(ctx, tokenKey(tenantID, tokenHash)).Err(); err != nil {
		logger.Error("Failed to delete token binding",
			zap.Error(err),
			zap.String("tenantId", tenantID),
			logger.TokenHash(tokenHash))
		return fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}
	return nil
}

// DeleteExpired is a no-op: redis expires bindings on its own.
func (dao *TokenDAO) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
