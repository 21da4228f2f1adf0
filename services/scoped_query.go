package services

import (
	"context"
	"fmt"

	"party_geo_app_go/models"

	"gorm.io/gorm"
)

// DescendantsOf returns every node in the subtree below nodeID (the node
// itself excluded), ordered by path so siblings group naturally. The lookup
// is a single prefix range scan on the materialized path column; no
// recursive parent walks.
func DescendantsOf(db *gorm.DB, storeID, nodeID string, activeOnly bool) ([]models.GeoNode, error) {
	node, err := GetNode(db, storeID, nodeID)
	if err != nil {
		return nil, err
	}

	q := db.Where("store_id = ? AND path LIKE ?", storeID, node.Path+PathSeparator+"%")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var descendants []models.GeoNode
	if err := q.Order("path ASC").Find(&descendants).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch descendants of %s: %w", nodeID, err)
	}
	return descendants, nil
}

// ForEachDescendant streams the subtree below nodeID through fn in
// path-keyset batches, so large jurisdictions never load at once. Returning
// an error from fn stops the walk; a restart naturally resumes from the top
// because traversal order is deterministic.
func ForEachDescendant(ctx context.Context, db *gorm.DB, storeID, nodeID string, activeOnly bool, batchSize int, fn func(models.GeoNode) error) error {
	node, err := GetNode(db, storeID, nodeID)
	if err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	lastPath := node.Path + PathSeparator
	prefix := node.Path + PathSeparator + "%"
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		q := db.Where("store_id = ? AND path LIKE ? AND path > ?", storeID, prefix, lastPath)
		if activeOnly {
			q = q.Where("active = ?", true)
		}
		var batch []models.GeoNode
		if err := q.Order("path ASC").Limit(batchSize).Find(&batch).Error; err != nil {
			return fmt.Errorf("failed to fetch descendant batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}
		for _, descendant := range batch {
			if err := fn(descendant); err != nil {
				return err
			}
		}
		lastPath = batch[len(batch)-1].Path
	}
}

// JurisdictionFilter returns a gorm scope restricting any query with a `path`
// column to records at or below userPath. Consumers chain it onto their own
// member/report queries:
//
//	db.Model(&member{}).Scopes(services.JurisdictionFilter(assignedPath))
//
// This is the read-heavy hot path; it compiles to an exact-or-prefix match
// the path index serves directly.
func JurisdictionFilter(userPath GeoPath) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("path = ? OR path LIKE ?", string(userPath), string(userPath)+PathSeparator+"%")
	}
}

// NodeReferenceCount pairs a leaf node id with its active reference count
type NodeReferenceCount struct {
	NodeID string `json:"node_id"`
	Count  int64  `json:"count"`
}

// CountReferencesByNode aggregates active geo references within the caller's
// jurisdiction, grouped by leaf node. Report generators use this for
// membership-density views.
func CountReferencesByNode(db *gorm.DB, storeID string, userPath GeoPath) ([]NodeReferenceCount, error) {
	var counts []NodeReferenceCount
	err := db.Model(&models.GeoReference{}).
		Select("node_id, COUNT(*) as count").
		Where("store_id = ? AND active = ?", storeID, true).
		Scopes(JurisdictionFilter(userPath)).
		Group("node_id").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate references: %w", err)
	}
	return counts, nil
}
