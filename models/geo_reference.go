package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GeoReference is the core-side ledger of geography references committed by
// consumers (member registration, committee assignment) after validation.
// It backs the deactivation guard and jurisdiction-scoped density queries;
// the consumer's own record lives outside the core.
type GeoReference struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	StoreID string `gorm:"size:64;not null;index:idx_ref_store_path" json:"store_id"`
	// NodeID is the leaf node of the referenced chain
	NodeID string `gorm:"type:uuid;not null;index" json:"node_id"`
	// Path is the validated GeoPath of the full chain, used for prefix scans
	Path string `gorm:"size:512;not null;index:idx_ref_store_path" json:"path"`

	// SubjectType/SubjectID identify the consumer record holding the reference
	SubjectType string `gorm:"size:40;not null" json:"subject_type"`
	SubjectID   string `gorm:"size:64;not null;index" json:"subject_id"`

	// No column default; RegisterReference sets the flag explicitly
	Active bool `gorm:"not null" json:"active"`
}

// BeforeCreate hook to generate UUID
func (r *GeoReference) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (GeoReference) TableName() string {
	return "geo_references"
}
