package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"party_geo_app_go/models"

	"gorm.io/gorm"
)

// GetTenantBySlug resolves a tenant from its URL slug
func GetTenantBySlug(db *gorm.DB, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := db.Where("slug = ?", slug).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("tenant %q: %w", slug, ErrTenantNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tenant %q: %w", slug, err)
	}
	return &tenant, nil
}

// ProvisionTenant creates a tenant and runs its initial mirroring pass,
// copying every official node of the tenant's country into its own store.
// The mirroring half is idempotent, so a provisioning event interrupted
// mid-pass is finished by calling MirrorSubtree again.
func ProvisionTenant(ctx context.Context, db *gorm.DB, mirror *MirrorService, name, countryCode string) (*models.Tenant, *MirrorReport, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, &ValidationError{Field: "name", Message: "tenant name is required"}
	}
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if len(countryCode) != 3 {
		return nil, nil, &ValidationError{Field: "country_code", Message: "a 3-letter country code is required"}
	}

	tenant := &models.Tenant{
		Name:        name,
		CountryCode: countryCode,
	}
	if err := db.Create(tenant).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	report, err := mirror.MirrorSubtree(ctx, tenant.StoreID(), nil)
	if err != nil {
		return tenant, report, err
	}
	return tenant, report, nil
}
