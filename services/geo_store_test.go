package services

import (
	"testing"

	"party_geo_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupGeoTestDB creates an in-memory SQLite database for testing
func setupGeoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Tenant{},
		&models.GeoNode{},
		&models.MirrorMapping{},
		&models.GeoReference{},
	))
	return db
}

// seedProvinceDistrict creates the canonical pair used throughout the tests:
// root "Province A" (id=1) with child "District X" (id=10)
func seedProvinceDistrict(t *testing.T, db *gorm.DB) (*models.GeoNode, *models.GeoNode) {
	t.Helper()
	province, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
		ID:          "1",
		CountryCode: "NPL",
		Kind:        models.KindProvince,
		Names:       map[string]string{"en": "Province A"},
	})
	require.NoError(t, err)

	district, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
		ID:          "10",
		CountryCode: "NPL",
		Kind:        models.KindDistrict,
		ParentID:    &province.ID,
		Names:       map[string]string{"en": "District X"},
	})
	require.NoError(t, err)

	return province, district
}

func TestCreateNode(t *testing.T) {
	db := setupGeoTestDB(t)

	t.Run("root province", func(t *testing.T) {
		node, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
			CountryCode: "npl",
			Kind:        models.KindProvince,
			Names:       map[string]string{"en": "Bagmati", "ne": "बागमती"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, node.Level)
		assert.Nil(t, node.ParentID)
		assert.Equal(t, "NPL", node.CountryCode)
		assert.Equal(t, "Bagmati", node.Name)
		assert.Equal(t, node.ID, node.Path)
		assert.True(t, node.Active)
		assert.Equal(t, "बागमती", node.NamesMap()["ne"])
	})

	t.Run("child inherits country and derives level and path", func(t *testing.T) {
		var parent models.GeoNode
		require.NoError(t, db.Where("store_id = ? AND level = 1", models.CanonicalStoreID).First(&parent).Error)

		child, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
			Kind:     models.KindDistrict,
			ParentID: &parent.ID,
			Names:    map[string]string{"en": "Kathmandu"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, child.Level)
		assert.Equal(t, "NPL", child.CountryCode)
		assert.Equal(t, parent.Path+"."+child.ID, child.Path)
	})

	t.Run("missing names rejected", func(t *testing.T) {
		_, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
			CountryCode: "NPL",
			Kind:        models.KindProvince,
		})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "names", validationErr.Field)
	})

	t.Run("kind must match level", func(t *testing.T) {
		_, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
			CountryCode: "NPL",
			Kind:        models.KindWard,
			Names:       map[string]string{"en": "Not A Root Ward"},
		})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "kind", validationErr.Field)
	})

	t.Run("custom kind routed elsewhere", func(t *testing.T) {
		_, err := CreateNode(db, "tenant-1", GeoNodeDraft{
			CountryCode: "NPL",
			Kind:        models.KindCustom,
			Names:       map[string]string{"en": "Cell"},
		})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("id containing a like wildcard rejected", func(t *testing.T) {
		// An id like "a_c" would match the sibling "abc" in every
		// path-prefix scan, leaking foreign subtrees
		for _, id := range []string{"a_c", "50%"} {
			_, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
				ID:          id,
				CountryCode: "NPL",
				Kind:        models.KindProvince,
				Names:       map[string]string{"en": "Wildcard Province " + id},
			})
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, "id", validationErr.Field)
		}
	})

	t.Run("official nodes cannot be written into tenant stores", func(t *testing.T) {
		_, err := CreateNode(db, "tenant-1", GeoNodeDraft{
			CountryCode: "NPL",
			Kind:        models.KindProvince,
			Names:       map[string]string{"en": "Rogue Province"},
		})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "store_id", validationErr.Field)
	})

	t.Run("duplicate active sibling name rejected", func(t *testing.T) {
		_, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
			CountryCode: "NPL",
			Kind:        models.KindProvince,
			Names:       map[string]string{"en": "  BAGMATI  "}, // normalization catches it
		})
		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)
	})
}

func TestGetNodeStoreIsolation(t *testing.T) {
	db := setupGeoTestDB(t)
	province, _ := seedProvinceDistrict(t, db)

	got, err := GetNode(db, models.CanonicalStoreID, province.ID)
	require.NoError(t, err)
	assert.Equal(t, province.ID, got.ID)

	// The same id is invisible through another store's lens
	_, err = GetNode(db, "tenant-1", province.ID)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestChildrenOfOrdering(t *testing.T) {
	db := setupGeoTestDB(t)
	province, _ := seedProvinceDistrict(t, db)

	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		_, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
			Kind:     models.KindDistrict,
			ParentID: &province.ID,
			Names:    map[string]string{"en": name},
		})
		require.NoError(t, err)
	}

	children, err := ChildrenOf(db, models.CanonicalStoreID, province.ID, true)
	require.NoError(t, err)
	require.Len(t, children, 4)
	assert.Equal(t, "Alpha", children[0].Name)
	assert.Equal(t, "District X", children[1].Name)
	assert.Equal(t, "Mid", children[2].Name)
	assert.Equal(t, "Zeta", children[3].Name)
}

func TestDeactivateNode(t *testing.T) {
	db := setupGeoTestDB(t)
	province, district := seedProvinceDistrict(t, db)

	t.Run("blocked by active children", func(t *testing.T) {
		err := DeactivateNode(db, models.CanonicalStoreID, province.ID)
		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, province.ID, conflictErr.NodeID)
	})

	t.Run("blocked by active references", func(t *testing.T) {
		path, err := ValidateChain(db, models.CanonicalStoreID, []string{province.ID, district.ID})
		require.NoError(t, err)
		ref, err := RegisterReference(db, models.CanonicalStoreID, "member", "m-1", path)
		require.NoError(t, err)

		err = DeactivateNode(db, models.CanonicalStoreID, district.ID)
		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)

		require.NoError(t, ReleaseReference(db, models.CanonicalStoreID, ref.ID))
	})

	t.Run("leaf with no dependents deactivates", func(t *testing.T) {
		require.NoError(t, DeactivateNode(db, models.CanonicalStoreID, district.ID))

		got, err := GetNode(db, models.CanonicalStoreID, district.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)

		// Idempotent on an already-inactive node
		assert.NoError(t, DeactivateNode(db, models.CanonicalStoreID, district.ID))
	})

	t.Run("parent deactivates once children are gone", func(t *testing.T) {
		assert.NoError(t, DeactivateNode(db, models.CanonicalStoreID, province.ID))
	})
}

func TestReplaceNode(t *testing.T) {
	db := setupGeoTestDB(t)
	province, district := seedProvinceDistrict(t, db)

	t.Run("retires old and links successor", func(t *testing.T) {
		replacement, err := ReplaceNode(db, models.CanonicalStoreID, district.ID, GeoNodeDraft{
			Kind:     models.KindDistrict,
			ParentID: &province.ID,
			Names:    map[string]string{"en": "District X Renewed"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, replacement.Level)

		old, err := GetNode(db, models.CanonicalStoreID, district.ID)
		require.NoError(t, err)
		assert.False(t, old.Active)
		require.NotNil(t, old.SupersededByID)
		assert.Equal(t, replacement.ID, *old.SupersededByID)
	})

	t.Run("rolls back when the old node cannot retire", func(t *testing.T) {
		var before int64
		db.Model(&models.GeoNode{}).Count(&before)

		// province still has an active child (the replacement district)
		_, err := ReplaceNode(db, models.CanonicalStoreID, province.ID, GeoNodeDraft{
			CountryCode: "NPL",
			Kind:        models.KindProvince,
			Names:       map[string]string{"en": "Province A Prime"},
		})
		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)

		var after int64
		db.Model(&models.GeoNode{}).Count(&after)
		assert.Equal(t, before, after, "failed replacement must not leave a half-created node")
	})
}
