package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is a party chapter/organization owning one tenant geography store.
// The tenant's id doubles as its store id.
type Tenant struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	CountryCode string `gorm:"size:3;not null" json:"country_code"`

	// MirroredAt is the completion time of the most recent mirroring pass
	MirroredAt *time.Time `json:"mirrored_at,omitempty"`
}

// StoreID returns the logical geography store id owned by this tenant
func (t *Tenant) StoreID() string {
	return t.ID
}

// BeforeCreate hook to generate UUID and slug
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Slug == "" {
		t.Slug = generateTenantSlug(tx, t.Name)
	}
	return nil
}

// generateTenantSlug creates a URL-friendly slug from the tenant name
func generateTenantSlug(tx *gorm.DB, name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")

	reg := regexp.MustCompile(`[^a-z0-9-]+`)
	slug = reg.ReplaceAllString(slug, "")

	reg = regexp.MustCompile(`-+`)
	slug = reg.ReplaceAllString(slug, "-")

	slug = strings.Trim(slug, "-")

	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.TrimRight(slug, "-")
	}

	// Ensure uniqueness
	originalSlug := slug
	counter := 1
	for {
		var count int64
		tx.Model(&Tenant{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			break
		}
		slug = originalSlug + "-" + strconv.Itoa(counter)
		counter++
	}

	return slug
}

// TableName specifies the table name
func (Tenant) TableName() string {
	return "tenants"
}
