// dao/account_dao.go
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/gatekeeper/db"
	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/gatekeeper/model"
	gk_neo4j "github.com/dev-mohitbeniwal/gatekeeper/model/neo4j"
)

// AccountDAO reads accounts and group memberships for the login flow.
type AccountDAO struct {
	Driver neo4j.DriverWithContext
}

func NewAccountDAO(driver neo4j.DriverWithContext) *AccountDAO {
	return &AccountDAO{Driver: driver}
}

// GetAccount finds an account in tenantID by email or id. It returns
// (nil, nil) when no account matches.
func (dao *AccountDAO) GetAccount(ctx context.Context, tenantID, account string) (*model.Account, error) {
	start := time.Now()

	result, err := db.ExecuteRead(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        MATCH (u:` + gk_neo4j.LabelUser + ` {` + gk_neo4j.AttrTenantID + `: $tenantId})
        WHERE u.` + gk_neo4j.AttrEmail + ` = $account OR u.` + gk_neo4j.AttrID + ` = $account
        OPTIONAL MATCH (u)-[:` + gk_neo4j.RelHasDevice + `]->(d:` + gk_neo4j.LabelAuthenticationDevice + `)
        RETURN u, count(d) AS deviceCount
        LIMIT 1
        `
		res, err := tx.Run(ctx, query, map[string]interface{}{
			gk_neo4j.AttrTenantID: tenantID,
			"account":             account,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to execute get account query: %w", err)
		}

		if !res.Next(ctx) {
			return nil, res.Err()
		}
		record := res.Record()
		node, _, err := neo4j.GetRecordValue[neo4j.Node](record, "u")
		if err != nil {
			return nil, err
		}
		deviceCount, _, err := neo4j.GetRecordValue[int64](record, "deviceCount")
		if err != nil {
			return nil, err
		}
		acc := mapNodeToAccount(node)
		acc.DeviceCount = int(deviceCount)
		return acc, nil
	})

	if err != nil {
		logger.Error("Failed to get account",
			zap.Error(err),
			zap.String("tenantId", tenantID),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}

	acc, _ := result.(*model.Account)
	logger.Debug("Account lookup finished",
		zap.String("tenantId", tenantID),
		zap.Bool("found", acc != nil),
		zap.Duration("duration", time.Since(start)))
	return acc, nil
}

// GetUserGroups returns the ids of the groups userID belongs to in tenantID.
func (dao *AccountDAO) GetUserGroups(ctx context.Context, tenantID, userID string) ([]string, error) {
	start := time.Now()

	result, err := db.ExecuteRead(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        MATCH (u:` + gk_neo4j.LabelUser + ` {` + gk_neo4j.AttrTenantID + `: $tenantId, ` + gk_neo4j.AttrID + `: $id})
              -[:` + gk_neo4j.RelBelongsToGroup + `]->(g:` + gk_neo4j.LabelGroup + ` {` + gk_neo4j.AttrTenantID + `: $tenantId})
        RETURN g.` + gk_neo4j.AttrID + ` AS id
        ORDER BY id
        `
		res, err := tx.Run(ctx, query, map[string]interface{}{
			gk_neo4j.AttrTenantID: tenantID,
			gk_neo4j.AttrID:       userID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to execute get user groups query: %w", err)
		}

		var groups []string
		for res.Next(ctx) {
			id, _, err := neo4j.GetRecordValue[string](res.Record(), "id")
			if err != nil {
				return nil, err
			}
			groups = append(groups, id)
		}
		return groups, res.Err()
	})

	if err != nil {
		logger.Error("Failed to get user groups",
			zap.Error(err),
			zap.String("tenantId", tenantID),
			zap.String("userId", userID),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}

	groups, _ := result.([]string)
	return groups, nil
}

// UpdateLoginState records the outcome of a password check.
func (dao *AccountDAO) UpdateLoginState(ctx context.Context, tenantID, accountID string, failedCount int, lockedOut bool) error {
	start := time.Now()

	_, err := db.ExecuteWrite(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        MATCH (u:` + gk_neo4j.LabelUser + ` {` + gk_neo4j.AttrTenantID + `: $tenantId, ` + gk_neo4j.AttrID + `: $id})
        SET u.` + gk_neo4j.AttrFailedLoginCount + ` = $failedLoginCount,
            u.` + gk_neo4j.AttrLockedOut + ` = $lockedOut
        `
		_, err := tx.Run(ctx, query, map[string]interface{}{
			gk_neo4j.AttrTenantID:         tenantID,
			gk_neo4j.AttrID:               accountID,
			gk_neo4j.AttrFailedLoginCount: failedCount,
			gk_neo4j.AttrLockedOut:        lockedOut,
		})
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to update login state",
			zap.Error(err),
			zap.String("tenantId", tenantID),
			zap.String("accountId", accountID),
			zap.Duration("duration", time.Since(start)))
		return fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}
	return nil
}

func mapNodeToAccount(node neo4j.Node) *model.Account {
	props := node.Props
	acc := &model.Account{
		ID:           stringProp(props, gk_neo4j.AttrID),
		TenantID:     stringProp(props, gk_neo4j.AttrTenantID),
		Email:        stringProp(props, gk_neo4j.AttrEmail),
		PasswordHash: stringProp(props, gk_neo4j.AttrPasswordHash),
	}
	if v, ok := props[gk_neo4j.AttrFailedLoginCount].(int64); ok {
		acc.FailedLoginCount = int(v)
	}
	if v, ok := props[gk_neo4j.AttrLockedOut].(bool); ok {
		acc.LockedOut = v
	}
	return acc
}

func stringProp(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}
