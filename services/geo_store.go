package services

import (
	"errors"
	"fmt"
	"strings"

	"party_geo_app_go/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GeoNodeDraft is the caller-supplied input for creating a node. ID may be
// set explicitly by administrative imports that carry stable upstream ids;
// it is generated otherwise.
type GeoNodeDraft struct {
	ID          string
	CountryCode string
	Kind        models.GeoKind
	ParentID    *string
	Names       map[string]string
}

// GetNode fetches a single node from a logical store
func GetNode(db *gorm.DB, storeID, nodeID string) (*models.GeoNode, error) {
	var node models.GeoNode
	err := db.Where("store_id = ? AND id = ?", storeID, nodeID).First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("node %s in store %s: %w", nodeID, storeID, ErrNodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch node %s: %w", nodeID, err)
	}
	return &node, nil
}

// ChildrenOf returns the direct children of a node, ordered by name.
// Pass activeOnly=false to include deactivated children.
func ChildrenOf(db *gorm.DB, storeID, parentID string, activeOnly bool) ([]models.GeoNode, error) {
	q := db.Where("store_id = ? AND parent_id = ?", storeID, parentID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var children []models.GeoNode
	if err := q.Order("name ASC").Find(&children).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch children of %s: %w", parentID, err)
	}
	return children, nil
}

// RootsOf returns the level-1 nodes of a store for one country, ordered by name
func RootsOf(db *gorm.DB, storeID, countryCode string, activeOnly bool) ([]models.GeoNode, error) {
	q := db.Where("store_id = ? AND country_code = ? AND level = 1", storeID, strings.ToUpper(countryCode))
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var roots []models.GeoNode
	if err := q.Order("name ASC").Find(&roots).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch roots: %w", err)
	}
	return roots, nil
}

// CreateNode creates an official node in the canonical store. This is the
// write path for canonical seeding and administrative imports; custom tenant
// nodes go through AddCustomNode, and official nodes only enter tenant
// stores through the mirror synchronizer, so every tenant official node
// keeps an external id back to its canonical counterpart.
func CreateNode(db *gorm.DB, storeID string, draft GeoNodeDraft) (*models.GeoNode, error) {
	if draft.Kind == models.KindCustom {
		return nil, &ValidationError{Field: "kind", Message: "custom nodes must be added through the tenant extension manager"}
	}
	if storeID != models.CanonicalStoreID {
		return nil, &ValidationError{Field: "store_id", Message: "tenant stores only receive official nodes through mirroring"}
	}
	node, err := buildNode(db, storeID, draft, true, nil)
	if err != nil {
		return nil, err
	}
	if err := insertNode(db, node); err != nil {
		return nil, err
	}
	return node, nil
}

// DeactivateNode soft-retires a node. It fails with a ConflictError while
// active children or active geo references (to the node or anything beneath
// it) still exist; nodes are never hard-deleted while referenced so that
// historical paths stay resolvable.
func DeactivateNode(db *gorm.DB, storeID, nodeID string) error {
	node, err := GetNode(db, storeID, nodeID)
	if err != nil {
		return err
	}
	if !node.Active {
		return nil
	}

	var activeChildren int64
	err = db.Model(&models.GeoNode{}).
		Where("store_id = ? AND parent_id = ? AND active = ?", storeID, nodeID, true).
		Count(&activeChildren).Error
	if err != nil {
		return fmt.Errorf("failed to count children of %s: %w", nodeID, err)
	}
	if activeChildren > 0 {
		return &ConflictError{NodeID: nodeID, Message: fmt.Sprintf("%d active child node(s) exist", activeChildren)}
	}

	var activeRefs int64
	err = db.Model(&models.GeoReference{}).
		Where("store_id = ? AND active = ?", storeID, true).
		Where("path = ? OR path LIKE ?", node.Path, node.Path+PathSeparator+"%").
		Count(&activeRefs).Error
	if err != nil {
		return fmt.Errorf("failed to count references to %s: %w", nodeID, err)
	}
	if activeRefs > 0 {
		return &ConflictError{NodeID: nodeID, Message: fmt.Sprintf("%d active reference(s) exist", activeRefs)}
	}

	if err := db.Model(node).Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate node %s: %w", nodeID, err)
	}
	return nil
}

// ReplaceNode retires a node and creates its successor in one transaction,
// recording the audit link. Re-parenting is modeled this way instead of
// in-place moves so paths already issued to member records stay stable.
func ReplaceNode(db *gorm.DB, storeID, oldID string, draft GeoNodeDraft) (*models.GeoNode, error) {
	var created *models.GeoNode
	err := db.Transaction(func(tx *gorm.DB) error {
		node, err := CreateNode(tx, storeID, draft)
		if err != nil {
			return err
		}
		if err := DeactivateNode(tx, storeID, oldID); err != nil {
			return err
		}
		err = tx.Model(&models.GeoNode{}).
			Where("store_id = ? AND id = ?", storeID, oldID).
			Update("superseded_by_id", node.ID).Error
		if err != nil {
			return fmt.Errorf("failed to record audit link on %s: %w", oldID, err)
		}
		created = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// buildNode resolves the parent, derives level and path and assembles a
// not-yet-persisted node from a draft. isOfficial and externalID distinguish the
// three write paths (canonical/admin, mirror, tenant extension).
func buildNode(db *gorm.DB, storeID string, draft GeoNodeDraft, isOfficial bool, externalID *string) (*models.GeoNode, error) {
	if len(draft.Names) == 0 {
		return nil, &ValidationError{Field: "names", Message: "at least one display name is required"}
	}
	if !draft.Kind.Valid() {
		return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown unit type %q", draft.Kind)}
	}
	country := strings.ToUpper(strings.TrimSpace(draft.CountryCode))

	level := 1
	parentPath := GeoPath("")
	if draft.ParentID != nil {
		parent, err := GetNode(db, storeID, *draft.ParentID)
		if err != nil {
			return nil, err
		}
		if !parent.Active {
			return nil, &ValidationError{Field: "parent_id", Message: "parent node is not active"}
		}
		level = parent.Level + 1
		parentPath = GeoPath(parent.Path)
		if country == "" {
			country = parent.CountryCode
		} else if country != parent.CountryCode {
			return nil, &ValidationError{Field: "country_code", Message: "node must share its parent's country"}
		}
	}
	if country == "" {
		return nil, &ValidationError{Field: "country_code", Message: "country code is required"}
	}

	if draft.Kind != models.KindCustom {
		expected := models.OfficialKindForLevel(level)
		if expected == "" {
			return nil, &ValidationError{Field: "level", Message: fmt.Sprintf("no official unit type exists at level %d", level)}
		}
		if draft.Kind != expected {
			return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("level %d requires kind %q, got %q", level, expected, draft.Kind)}
		}
	}
	if storeID != models.CanonicalStoreID && level > models.MaxTenantDepth {
		return nil, &ValidationError{Field: "level", Message: fmt.Sprintf("tenant paths are capped at depth %d", models.MaxTenantDepth)}
	}

	id := draft.ID
	if id == "" {
		id = uuid.New().String()
	} else if strings.ContainsAny(id, reservedSegmentChars) {
		return nil, &ValidationError{Field: "id", Message: fmt.Sprintf("node id must not contain any of %q", reservedSegmentChars)}
	}

	node := &models.GeoNode{
		ID:          id,
		StoreID:     storeID,
		CountryCode: country,
		Level:       level,
		ParentID:    draft.ParentID,
		Kind:        draft.Kind,
		IsOfficial:  isOfficial,
		ExternalID:  externalID,
		Active:      true,
		Path:        string(ChildPath(parentPath, id)),
	}
	if err := node.SetNames(draft.Names); err != nil {
		return nil, &ValidationError{Field: "names", Message: "could not encode display names"}
	}
	return node, nil
}

// insertNode persists a built node after the active-sibling uniqueness check.
// The partial unique index on (store_id, parent_id, normalized_name) backs
// this up under concurrency; sqlite treats NULL parents as distinct, so the
// root case relies on the check here.
func insertNode(db *gorm.DB, node *models.GeoNode) error {
	clash, err := activeSiblingExists(db, node.StoreID, node.ParentID, node.NormalizedName, "")
	if err != nil {
		return err
	}
	if clash {
		return &ConflictError{Message: fmt.Sprintf("an active sibling named %q already exists", node.Name)}
	}

	if err := db.Create(node).Error; err != nil {
		return fmt.Errorf("failed to create node %s: %w", node.ID, err)
	}
	return nil
}

// activeSiblingExists reports whether an active node other than excludeID
// holds normalizedName under the same parent
func activeSiblingExists(db *gorm.DB, storeID string, parentID *string, normalizedName, excludeID string) (bool, error) {
	q := db.Model(&models.GeoNode{}).
		Where("store_id = ? AND normalized_name = ? AND active = ?", storeID, normalizedName, true)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check sibling names: %w", err)
	}
	return count > 0, nil
}
