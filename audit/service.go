// audit/service.go
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
)

type Service interface {
	LogAccess(ctx context.Context, log AuditLog) error
	QueryLogs(ctx context.Context, query Query) ([]AuditLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// LogAccess fills in the id and timestamp when missing.
func (s *service) LogAccess(ctx context.Context, log AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	return s.repo.LogAccess(ctx, log)
}

func (s *service) QueryLogs(ctx context.Context, query Query) ([]AuditLog, error) {
	return s.repo.QueryLogs(ctx, query)
}

// Discard is used when no audit backend is configured.
type Discard struct{}

func (Discard) LogAccess(ctx context.Context, log AuditLog) error {
	logger.Debug("Audit log discarded",
		zap.String("tenantID", log.TenantID),
		zap.String("action", log.Action))
	return nil
}

func (Discard) QueryLogs(ctx context.Context, query Query) ([]AuditLog, error) {
	return []AuditLog{}, nil
}
