package services

import (
	"fmt"

	"party_geo_app_go/models"

	"gorm.io/gorm"
)

// ValidateChain checks that orderedNodeIDs forms a legal ancestor path in the
// given store: it must start at a level-1 root, stay contiguous (each node a
// direct child of the previous one, level increasing by exactly one), contain
// only active nodes, and be at most MaxTenantDepth long. On success the
// encoded GeoPath is returned.
//
// This is a pure decision function over store reads; it persists nothing.
// Consumers call it before committing any record that references geography.
func ValidateChain(db *gorm.DB, storeID string, orderedNodeIDs []string) (GeoPath, error) {
	if len(orderedNodeIDs) == 0 {
		return "", &ValidationError{Field: "chain", Message: "ancestor chain is empty"}
	}
	if len(orderedNodeIDs) > models.MaxTenantDepth {
		return "", &HierarchyError{
			Index:  models.MaxTenantDepth,
			NodeID: orderedNodeIDs[models.MaxTenantDepth],
			Reason: ReasonTooDeep,
		}
	}

	var nodes []models.GeoNode
	err := db.Where("store_id = ? AND id IN ?", storeID, orderedNodeIDs).Find(&nodes).Error
	if err != nil {
		return "", fmt.Errorf("failed to fetch chain nodes: %w", err)
	}
	byID := make(map[string]*models.GeoNode, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	for i, id := range orderedNodeIDs {
		node, ok := byID[id]
		if !ok {
			return "", &HierarchyError{Index: i, NodeID: id, Reason: ReasonUnknownNode}
		}

		if i == 0 {
			if node.Level != 1 {
				return "", &HierarchyError{Index: 0, NodeID: id, Reason: ReasonMustStartAtRoot}
			}
		} else {
			if node.ParentID == nil || *node.ParentID != orderedNodeIDs[i-1] {
				return "", &HierarchyError{Index: i, NodeID: id, Reason: ReasonNotChildOf}
			}
			if node.Level != byID[orderedNodeIDs[i-1]].Level+1 {
				return "", &HierarchyError{Index: i, NodeID: id, Reason: ReasonWrongLevel}
			}
		}

		if !node.Active {
			return "", &HierarchyError{Index: i, NodeID: id, Reason: ReasonInactive}
		}
	}

	return EncodePath(orderedNodeIDs)
}
