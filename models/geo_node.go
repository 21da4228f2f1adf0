package models

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CanonicalStoreID is the logical store id of the shared, authoritative
// registry of official administrative units. Tenant stores use the owning
// tenant's id.
const CanonicalStoreID = "canonical"

// MaxTenantDepth caps the ancestor chain length inside a tenant store.
// The canonical store has no fixed maximum.
const MaxTenantDepth = 8

// GeoKind is the administrative unit type of a node
type GeoKind string

const (
	KindProvince    GeoKind = "province"
	KindDistrict    GeoKind = "district"
	KindSubdistrict GeoKind = "subdistrict"
	KindWard        GeoKind = "ward"
	KindCustom      GeoKind = "custom" // only valid in a tenant store
)

// Valid reports whether k is a known unit type
func (k GeoKind) Valid() bool {
	switch k {
	case KindProvince, KindDistrict, KindSubdistrict, KindWard, KindCustom:
		return true
	}
	return false
}

// OfficialKindForLevel returns the unit type expected at a given level for
// official nodes. Levels 1 through 3 map to province, district and
// subdistrict; level 4 and anything deeper is a ward, so canonical trees
// are not capped at four levels. Returns "" for levels below 1.
func OfficialKindForLevel(level int) GeoKind {
	switch {
	case level == 1:
		return KindProvince
	case level == 2:
		return KindDistrict
	case level == 3:
		return KindSubdistrict
	case level >= 4:
		return KindWard
	}
	return ""
}

// GeoNode represents one administrative unit in a logical store. Canonical
// nodes and tenant nodes share the table; StoreID is the discriminator.
type GeoNode struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	StoreID     string `gorm:"size:64;not null;index:idx_geo_store_path;index:idx_geo_sibling_name,unique,where:active" json:"store_id"`
	CountryCode string `gorm:"size:3;not null;index" json:"country_code"`
	Level       int    `gorm:"not null" json:"level"`

	ParentID *string `gorm:"type:uuid;index:idx_geo_sibling_name" json:"parent_id"`

	Name           string `gorm:"size:120;not null" json:"name"`
	NormalizedName string `gorm:"size:120;not null;index:idx_geo_sibling_name" json:"-"`
	// AltNames holds the language-tag -> display-name map as JSON text.
	// Name is the default display entry, always present in the map too.
	AltNames string `gorm:"type:text" json:"-"`

	Kind GeoKind `gorm:"size:20;not null" json:"kind"`
	// IsOfficial and Active carry no column default: gorm omits zero-value
	// fields with a default tag on insert, which would turn an explicit
	// false into true. Every write path sets both flags.
	IsOfficial bool `gorm:"not null" json:"is_official"`
	// ExternalID links a mirrored tenant node back to its canonical source.
	// Always nil for custom nodes and for canonical-store nodes themselves.
	ExternalID *string `gorm:"type:uuid;index" json:"external_id"`

	Active bool `gorm:"not null" json:"active"`

	// Path is the materialized dot-joined ancestor id chain from root to this
	// node, kept in sync on create. Indexed for prefix range scans.
	Path string `gorm:"size:512;not null;index:idx_geo_store_path" json:"path"`

	// SupersededByID records the replacement node when this node was retired
	// by a re-parenting operation, so historical paths stay resolvable.
	SupersededByID *string `gorm:"type:uuid" json:"superseded_by_id,omitempty"`
}

// BeforeCreate hook to generate UUID and the normalized name
func (n *GeoNode) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.NormalizedName == "" {
		n.NormalizedName = NormalizeName(n.Name)
	}
	return nil
}

// TableName specifies the table name
func (GeoNode) TableName() string {
	return "geo_nodes"
}

// NamesMap decodes the language-tag -> display-name map. A node always has at
// least the default entry.
func (n *GeoNode) NamesMap() map[string]string {
	names := map[string]string{}
	if n.AltNames != "" {
		_ = json.Unmarshal([]byte(n.AltNames), &names)
	}
	if len(names) == 0 {
		names["en"] = n.Name
	}
	return names
}

// SetNames stores the display-name map and picks the default entry for Name.
// English wins when present, otherwise the lexicographically first tag.
func (n *GeoNode) SetNames(names map[string]string) error {
	if len(names) == 0 {
		return gorm.ErrInvalidData
	}
	display, ok := names["en"]
	if !ok {
		first := ""
		for tag := range names {
			if first == "" || tag < first {
				first = tag
			}
		}
		display = names[first]
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return err
	}
	n.Name = display
	n.NormalizedName = NormalizeName(display)
	n.AltNames = string(encoded)
	return nil
}

var nameSpaceRegexp = regexp.MustCompile(`\s+`)

// NormalizeName lowercases, trims and collapses whitespace so sibling-name
// uniqueness is not defeated by casing or stray spaces
func NormalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	return nameSpaceRegexp.ReplaceAllString(normalized, " ")
}
