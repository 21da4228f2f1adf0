package services

import (
	"context"
	"fmt"
	"testing"

	"party_geo_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// mirrorCanonicalPair mirrors the canonical province/district pair into a
// fresh tenant and returns the tenant plus the local district node
func mirrorCanonicalPair(t *testing.T, db *gorm.DB) (*models.Tenant, *models.GeoNode) {
	t.Helper()
	seedProvinceDistrict(t, db)

	mirror := NewMirrorService(db, nil, 0)
	tenant, report, err := ProvisionTenant(context.Background(), db, mirror, "Tenant A", "NPL")
	require.NoError(t, err)
	require.Equal(t, 2, report.Created)

	var localDistrict models.GeoNode
	require.NoError(t, db.Where("store_id = ? AND external_id = ?", tenant.StoreID(), "10").First(&localDistrict).Error)
	return tenant, &localDistrict
}

func TestAddCustomNode(t *testing.T) {
	db := setupGeoTestDB(t)
	tenant, localDistrict := mirrorCanonicalPair(t, db)

	t.Run("grafts below a mirrored node", func(t *testing.T) {
		node, err := AddCustomNode(db, tenant.StoreID(), localDistrict.ID, GeoNodeDraft{
			Kind:  models.KindCustom,
			Names: map[string]string{"en": "Youth Cell"},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, node.Level)
		assert.False(t, node.IsOfficial)
		assert.Nil(t, node.ExternalID)
		assert.Equal(t, models.KindCustom, node.Kind)
		assert.Equal(t, localDistrict.Path+"."+node.ID, node.Path)

		// The stored row must agree, not just the returned struct
		stored, err := GetNode(db, tenant.StoreID(), node.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsOfficial)
		assert.True(t, stored.Active)
	})

	t.Run("official drafts are rejected", func(t *testing.T) {
		_, err := AddCustomNode(db, tenant.StoreID(), localDistrict.ID, GeoNodeDraft{
			Kind:  models.KindSubdistrict,
			Names: map[string]string{"en": "Fake Official"},
		})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "kind", validationErr.Field)
	})

	t.Run("canonical store refuses custom nodes", func(t *testing.T) {
		_, err := AddCustomNode(db, models.CanonicalStoreID, "1", GeoNodeDraft{
			Kind:  models.KindCustom,
			Names: map[string]string{"en": "Rogue Cell"},
		})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "store_id", validationErr.Field)
	})

	t.Run("duplicate sibling name rejected", func(t *testing.T) {
		_, err := AddCustomNode(db, tenant.StoreID(), localDistrict.ID, GeoNodeDraft{
			Kind:  models.KindCustom,
			Names: map[string]string{"en": "youth cell"},
		})
		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)
	})

	t.Run("inactive parent rejected", func(t *testing.T) {
		retired, err := AddCustomNode(db, tenant.StoreID(), localDistrict.ID, GeoNodeDraft{
			Kind:  models.KindCustom,
			Names: map[string]string{"en": "Transient Cell"},
		})
		require.NoError(t, err)
		require.NoError(t, DeactivateNode(db, tenant.StoreID(), retired.ID))

		_, err = AddCustomNode(db, tenant.StoreID(), retired.ID, GeoNodeDraft{
			Kind:  models.KindCustom,
			Names: map[string]string{"en": "Orphan Cell"},
		})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "parent_id", validationErr.Field)
	})

	t.Run("missing parent rejected", func(t *testing.T) {
		_, err := AddCustomNode(db, tenant.StoreID(), "no-such-parent", GeoNodeDraft{
			Kind:  models.KindCustom,
			Names: map[string]string{"en": "Nowhere Cell"},
		})
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})
}

func TestAddCustomNodeDepthCap(t *testing.T) {
	db := setupGeoTestDB(t)
	tenant, localDistrict := mirrorCanonicalPair(t, db)

	// Chain customs from level 3 up to the cap
	parentID := localDistrict.ID
	for level := 3; level <= models.MaxTenantDepth; level++ {
		node, err := AddCustomNode(db, tenant.StoreID(), parentID, GeoNodeDraft{
			Kind:  models.KindCustom,
			Names: map[string]string{"en": fmt.Sprintf("Unit L%d", level)},
		})
		require.NoError(t, err)
		assert.Equal(t, level, node.Level)
		parentID = node.ID
	}

	// One more would exceed the cap
	_, err := AddCustomNode(db, tenant.StoreID(), parentID, GeoNodeDraft{
		Kind:  models.KindCustom,
		Names: map[string]string{"en": "One Too Deep"},
	})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "level", validationErr.Field)
}
