package services

import (
	"fmt"

	"party_geo_app_go/models"

	"gorm.io/gorm"
)

// RegisterReference commits a validated geography reference to the core-side
// ledger. The path must come from ValidateChain; only the leaf is re-checked
// here (existence and active flag) so a stale path cannot slip in between
// validation and commit.
func RegisterReference(db *gorm.DB, storeID, subjectType, subjectID string, path GeoPath) (*models.GeoReference, error) {
	if subjectType == "" || subjectID == "" {
		return nil, &ValidationError{Field: "subject", Message: "subject type and id are required"}
	}
	leafID := LeafID(path)
	if leafID == "" {
		return nil, &ValidationError{Field: "path", Message: "path is empty"}
	}
	leaf, err := GetNode(db, storeID, leafID)
	if err != nil {
		return nil, err
	}
	if !leaf.Active {
		return nil, &ValidationError{Field: "path", Message: "referenced node is no longer active"}
	}
	if leaf.Path != string(path) {
		return nil, &ValidationError{Field: "path", Message: "path does not match the stored ancestry of its leaf"}
	}

	ref := &models.GeoReference{
		StoreID:     storeID,
		NodeID:      leafID,
		Path:        string(path),
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Active:      true,
	}
	if err := db.Create(ref).Error; err != nil {
		return nil, fmt.Errorf("failed to register reference: %w", err)
	}
	return ref, nil
}

// ReleaseReference retires a reference, lifting its hold on the referenced
// nodes' deactivation guard
func ReleaseReference(db *gorm.DB, storeID, referenceID string) error {
	result := db.Model(&models.GeoReference{}).
		Where("store_id = ? AND id = ? AND active = ?", storeID, referenceID, true).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to release reference %s: %w", referenceID, result.Error)
	}
	return nil
}
