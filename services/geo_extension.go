package services

import (
	"party_geo_app_go/models"

	"gorm.io/gorm"
)

// AddCustomNode grafts a tenant-defined node (a party cell, a booth area)
// under a node of the tenant's mirrored tree. This is the only write path
// that ever creates IsOfficial=false nodes, so the official/custom boundary
// is enforced here and nowhere else.
//
// Rules: the parent must exist and be active, the draft's kind must be
// custom, the resulting level must stay within MaxTenantDepth, and the name
// must be unique among active siblings.
func AddCustomNode(db *gorm.DB, tenantStoreID, parentID string, draft GeoNodeDraft) (*models.GeoNode, error) {
	if tenantStoreID == models.CanonicalStoreID {
		return nil, &ValidationError{Field: "store_id", Message: "custom nodes cannot be added to the canonical store"}
	}
	if draft.Kind != models.KindCustom {
		return nil, &ValidationError{Field: "kind", Message: "tenant extensions must have kind custom"}
	}

	draft.ParentID = &parentID
	node, err := buildNode(db, tenantStoreID, draft, false, nil)
	if err != nil {
		return nil, err
	}
	if err := insertNode(db, node); err != nil {
		return nil, err
	}
	return node, nil
}
