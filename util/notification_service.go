// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
)

// NotificationService reports security relevant changes to operators.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyPrivilegeChange(ctx context.Context, change PrivilegeChange) error {
	switch change.Action {
	case "grant", "revoke", "flush":
		logger.Info("NOTIFICATION: Privileges changed",
			zap.String("tenantID", change.TenantID),
			zap.String("action", change.Action),
			zap.String("principal", change.Principal),
			zap.String("key", change.Key),
			zap.String("dataId", change.DataID))
	default:
		return fmt.Errorf("unknown privilege change action: %s", change.Action)
	}
	return nil
}

func (n *NotificationService) NotifyAccountLockedOut(ctx context.Context, notice LockoutNotice) error {
	logger.Warn("NOTIFICATION: Account locked out",
		zap.String("tenantID", notice.TenantID),
		zap.String("accountID", notice.AccountID),
		zap.Int("failures", notice.Failures))
	return nil
}
