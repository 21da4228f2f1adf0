package services

import (
	"context"
	"testing"

	"party_geo_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionTenant(t *testing.T) {
	db := setupGeoTestDB(t)
	seedProvinceDistrict(t, db)
	mirror := NewMirrorService(db, nil, 0)

	t.Run("creates the tenant and mirrors its country", func(t *testing.T) {
		tenant, report, err := ProvisionTenant(context.Background(), db, mirror, "Valley Chapter", "npl")
		require.NoError(t, err)
		assert.Equal(t, "valley-chapter", tenant.Slug)
		assert.Equal(t, "NPL", tenant.CountryCode)
		assert.Equal(t, 2, report.Created)

		var nodes int64
		db.Model(&models.GeoNode{}).Where("store_id = ?", tenant.StoreID()).Count(&nodes)
		assert.EqualValues(t, 2, nodes)
	})

	t.Run("duplicate names get distinct slugs and stores", func(t *testing.T) {
		first, _, err := ProvisionTenant(context.Background(), db, mirror, "Border Chapter", "NPL")
		require.NoError(t, err)
		second, _, err := ProvisionTenant(context.Background(), db, mirror, "Border Chapter", "NPL")
		require.NoError(t, err)

		assert.NotEqual(t, first.Slug, second.Slug)
		assert.NotEqual(t, first.StoreID(), second.StoreID())
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		_, _, err := ProvisionTenant(context.Background(), db, mirror, "   ", "NPL")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("rejects a malformed country code", func(t *testing.T) {
		_, _, err := ProvisionTenant(context.Background(), db, mirror, "Chapter", "NEPAL")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestGetTenantBySlug(t *testing.T) {
	db := setupGeoTestDB(t)
	seedProvinceDistrict(t, db)
	mirror := NewMirrorService(db, nil, 0)

	tenant, _, err := ProvisionTenant(context.Background(), db, mirror, "Lookup Chapter", "NPL")
	require.NoError(t, err)

	got, err := GetTenantBySlug(db, tenant.Slug)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	_, err = GetTenantBySlug(db, "missing-chapter")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}
