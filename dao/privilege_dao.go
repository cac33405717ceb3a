// dao/privilege_dao.go
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

// PrivilegeDAO is the durable privilege store. It satisfies cache.Loader.
type PrivilegeDAO struct {
	Driver neo4j.DriverWithContext
}

func NewPrivilegeDAO(driver neo4j.DriverWithContext) *PrivilegeDAO {
	dao := &PrivilegeDAO{Driver: driver}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dao.EnsureConstraints(ctx); err != nil {
		logger.Fatal("Failed to ensure constraints for privileges", zap.Error(err))
	}
	return dao
}

func (dao *PrivilegeDAO) EnsureConstraints(ctx context.Context) error {
	logger.Info("Ensuring unique constraints on Group and Privilege")
	queries := []string{
		`CREATE CONSTRAINT unique_group_tenant_id IF NOT EXISTS
        FOR (g:` + gk_neo4j.LabelGroup + `) REQUIRE (g.` + gk_neo4j.AttrTenantID + `, g.` + gk_neo4j.AttrID + `) IS UNIQUE`,
		`CREATE CONSTRAINT unique_user_tenant_id IF NOT EXISTS
        FOR (u:` + gk_neo4j.LabelUser + `) REQUIRE (u.` + gk_neo4j.AttrTenantID + `, u.` + gk_neo4j.AttrID + `) IS UNIQUE`,
		`CREATE INDEX privilege_tenant_key IF NOT EXISTS
        FOR (p:` + gk_neo4j.LabelPrivilege + `) ON (p.` + gk_neo4j.AttrTenantID + `, p.` + gk_neo4j.AttrKey + `)`,
	}

	_, err := db.ExecuteWrite(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for _, query := range queries {
			if _, err := tx.Run(ctx, query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure privilege constraints", zap.Error(err))
		return err
	}

	logger.Info("Successfully ensured privilege constraints")
	return nil
}

func (dao *PrivilegeDAO) LoadGroupPrivileges(ctx context.Context, tenantID, groupID string) ([]model.Grant, error) {
	return dao.loadPrivileges(ctx, gk_neo4j.LabelGroup, tenantID, groupID)
}

func (dao *PrivilegeDAO) LoadUserPrivileges(ctx context.Context, tenantID, userID string) ([]model.Grant, error) {
	return dao.loadPrivileges(ctx, gk_neo4j.LabelUser, tenantID, userID)
}

func (dao *PrivilegeDAO) loadPrivileges(ctx context.Context, label, tenantID, id string) ([]model.Grant, error) {
	start := time.Now()

	result, err := db.ExecuteRead(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        MATCH (n:` + label + ` {` + gk_neo4j.AttrTenantID + `: $tenantId, ` + gk_neo4j.AttrID + `: $id})
              -[:` + gk_neo4j.RelHasPrivilege + `]->(p:` + gk_neo4j.LabelPrivilege + `)
        RETURN p.` + gk_neo4j.AttrKey + ` AS key, p.` + gk_neo4j.AttrDataID + ` AS dataId
        `
		res, err := tx.Run(ctx, query, map[string]interface{}{
			gk_neo4j.AttrTenantID: tenantID,
			gk_neo4j.AttrID:       id,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to execute load privileges query: %w", err)
		}

		var grants []model.Grant
		for res.Next(ctx) {
			record := res.Record()
			key, _, err := neo4j.GetRecordValue[string](record, "key")
			if err != nil {
				return nil, err
			}
			dataID, _, err := neo4j.GetRecordValue[string](record, "dataId")
			if err != nil {
				return nil, err
			}
			grants = append(grants, model.Grant{Key: key, DataID: dataID})
		}
		return grants, res.Err()
	})

	if err != nil {
		logger.Error("Failed to load privileges",
			zap.Error(err),
			zap.String("label", label),
			zap.String("tenantId", tenantID),
			zap.String("id", id),
			zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}

	grants, _ := result.([]model.Grant)
	logger.Debug("Privileges loaded",
		zap.String("label", label),
		zap.String("tenantId", tenantID),
		zap.String("id", id),
		zap.Int("count", len(grants)),
		zap.Duration("duration", time.Since(start)))
	return grants, nil
}

func (dao *PrivilegeDAO) GrantGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant) error {
	return dao.grant(ctx, gk_neo4j.LabelGroup, tenantID, groupID, grant)
}

func (dao *PrivilegeDAO) RevokeGroupPrivilege(ctx context.Context, tenantID, groupID string, grant model.Grant) error {
	return dao.revoke(ctx, gk_neo4j.LabelGroup, tenantID, groupID, grant)
}

func (dao *PrivilegeDAO) GrantUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant) error {
	return dao.grant(ctx, gk_neo4j.LabelUser, tenantID, userID, grant)
}

func (dao *PrivilegeDAO) RevokeUserPrivilege(ctx context.Context, tenantID, userID string, grant model.Grant) error {
	return dao.revoke(ctx, gk_neo4j.LabelUser, tenantID, userID, grant)
}

// grant merges the holder node so that the anonymous group and newly named
// groups can receive privileges before any member exists.
func (dao *PrivilegeDAO) grant(ctx context.Context, label, tenantID, id string, grant model.Grant) error {
	start := time.Now()
	logger.Info("Granting privilege",
		zap.String("label", label),
		zap.String("tenantId", tenantID),
		zap.String("id", id),
		zap.String("key", grant.Key),
		zap.String("dataId", grant.DataID))

	_, err := db.ExecuteWrite(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        MERGE (n:` + label + ` {` + gk_neo4j.AttrTenantID + `: $tenantId, ` + gk_neo4j.AttrID + `: $id})
        MERGE (n)-[:` + gk_neo4j.RelHasPrivilege + `]->(p:` + gk_neo4j.LabelPrivilege + ` {
            ` + gk_neo4j.AttrTenantID + `: $tenantId,
            ` + gk_neo4j.AttrKey + `: $key,
            ` + gk_neo4j.AttrDataID + `: $dataId})
        ON CREATE SET p.` + gk_neo4j.AttrCreatedAt + ` = $createdAt
        `
		_, err := tx.Run(ctx, query, map[string]interface{}{
			gk_neo4j.AttrTenantID:  tenantID,
			gk_neo4j.AttrID:        id,
			gk_neo4j.AttrKey:       grant.Key,
			gk_neo4j.AttrDataID:    grant.DataID,
			gk_neo4j.AttrCreatedAt: time.Now().Format(time.RFC3339),
		})
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to grant privilege",
			zap.Error(err),
			zap.String("tenantId", tenantID),
			zap.String("id", id),
			zap.Duration("duration", time.Since(start)))
		return fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}

	logger.Info("Privilege granted", zap.Duration("duration", time.Since(start)))
	return nil
}

func (dao *PrivilegeDAO) revoke(ctx context.Context, label, tenantID, id string, grant model.Grant) error {
	start := time.Now()
	logger.Info("Revoking privilege",
		zap.String("label", label),
		zap.String("tenantId", tenantID),
		zap.String("id", id),
		zap.String("key", grant.Key),
		zap.String("dataId", grant.DataID))

	_, err := db.ExecuteWrite(ctx, dao.Driver, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
        MATCH (n:` + label + ` {` + gk_neo4j.AttrTenantID + `: $tenantId, ` + gk_neo4j.AttrID + `: $id})
              -[:` + gk_neo4j.RelHasPrivilege + `]->(p:` + gk_neo4j.LabelPrivilege + ` {
            ` + gk_neo4j.AttrKey + `: $key,
            ` + gk_neo4j.AttrDataID + `: $dataId})
        DETACH DELETE p
        `
		_, err := tx.Run(ctx, query, map[string]interface{}{
			gk_neo4j.AttrTenantID: tenantID,
			gk_neo4j.AttrID:       id,
			gk_neo4j.AttrKey:      grant.Key,
			gk_neo4j.AttrDataID:   grant.DataID,
		})
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to revoke privilege",
			zap.Error(err),
			zap.String("tenantId", tenantID),
			zap.String("id", id),
			zap.Duration("duration", time.Since(start)))
		return fmt.Errorf("%w: %w", gk_errors.ErrDatabaseOperation, err)
	}

	logger.Info("Privilege revoked", zap.Duration("duration", time.Since(start)))
	return nil
}
