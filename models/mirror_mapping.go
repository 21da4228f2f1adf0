package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MirrorMapping records that a canonical node has been mirrored into a tenant
// store. A canonical node maps to at most one local node per tenant, and a
// local node mirrors at most one canonical node.
type MirrorMapping struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TenantStoreID string `gorm:"size:64;not null;uniqueIndex:idx_mirror_canonical;uniqueIndex:idx_mirror_local" json:"tenant_store_id"`
	CanonicalID   string `gorm:"type:uuid;not null;uniqueIndex:idx_mirror_canonical" json:"canonical_id"`
	LocalID       string `gorm:"type:uuid;not null;uniqueIndex:idx_mirror_local" json:"local_id"`
}

// BeforeCreate hook to generate UUID
func (m *MirrorMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (MirrorMapping) TableName() string {
	return "mirror_mappings"
}
