package services

import (
	"errors"
	"fmt"
	"log"

	"party_geo_app_go/models"

	"gorm.io/gorm"
)

// Nepal's federal structure: 7 provinces, 77 districts. Ward and municipality
// data arrives later through administrative imports; the static seed gives
// every deployment the same canonical upper tiers.
var nepalProvinces = []struct {
	Name   string
	Nepali string
}{
	{"Koshi", "कोशी"},
	{"Madhesh", "मधेश"},
	{"Bagmati", "बागमती"},
	{"Gandaki", "गण्डकी"},
	{"Lumbini", "लुम्बिनी"},
	{"Karnali", "कर्णाली"},
	{"Sudurpashchim", "सुदूरपश्चिम"},
}

var nepalDistricts = []struct {
	Province string
	Name     string
}{
	{"Koshi", "Bhojpur"},
	{"Koshi", "Dhankuta"},
	{"Koshi", "Ilam"},
	{"Koshi", "Jhapa"},
	{"Koshi", "Khotang"},
	{"Koshi", "Morang"},
	{"Koshi", "Okhaldhunga"},
	{"Koshi", "Panchthar"},
	{"Koshi", "Sankhuwasabha"},
	{"Koshi", "Solukhumbu"},
	{"Koshi", "Sunsari"},
	{"Koshi", "Taplejung"},
	{"Koshi", "Terhathum"},
	{"Koshi", "Udayapur"},
	{"Madhesh", "Bara"},
	{"Madhesh", "Dhanusha"},
	{"Madhesh", "Mahottari"},
	{"Madhesh", "Parsa"},
	{"Madhesh", "Rautahat"},
	{"Madhesh", "Saptari"},
	{"Madhesh", "Sarlahi"},
	{"Madhesh", "Siraha"},
	{"Bagmati", "Bhaktapur"},
	{"Bagmati", "Chitwan"},
	{"Bagmati", "Dhading"},
	{"Bagmati", "Dolakha"},
	{"Bagmati", "Kathmandu"},
	{"Bagmati", "Kavrepalanchok"},
	{"Bagmati", "Lalitpur"},
	{"Bagmati", "Makwanpur"},
	{"Bagmati", "Nuwakot"},
	{"Bagmati", "Ramechhap"},
	{"Bagmati", "Rasuwa"},
	{"Bagmati", "Sindhuli"},
	{"Bagmati", "Sindhupalchok"},
	{"Gandaki", "Baglung"},
	{"Gandaki", "Gorkha"},
	{"Gandaki", "Kaski"},
	{"Gandaki", "Lamjung"},
	{"Gandaki", "Manang"},
	{"Gandaki", "Mustang"},
	{"Gandaki", "Myagdi"},
	{"Gandaki", "Nawalpur"},
	{"Gandaki", "Parbat"},
	{"Gandaki", "Syangja"},
	{"Gandaki", "Tanahun"},
	{"Lumbini", "Arghakhanchi"},
	{"Lumbini", "Banke"},
	{"Lumbini", "Bardiya"},
	{"Lumbini", "Dang"},
	{"Lumbini", "Gulmi"},
	{"Lumbini", "Kapilvastu"},
	{"Lumbini", "Palpa"},
	{"Lumbini", "Parasi"},
	{"Lumbini", "Pyuthan"},
	{"Lumbini", "Rolpa"},
	{"Lumbini", "Rukum East"},
	{"Lumbini", "Rupandehi"},
	{"Karnali", "Dailekh"},
	{"Karnali", "Dolpa"},
	{"Karnali", "Humla"},
	{"Karnali", "Jajarkot"},
	{"Karnali", "Jumla"},
	{"Karnali", "Kalikot"},
	{"Karnali", "Mugu"},
	{"Karnali", "Rukum West"},
	{"Karnali", "Salyan"},
	{"Karnali", "Surkhet"},
	{"Sudurpashchim", "Achham"},
	{"Sudurpashchim", "Baitadi"},
	{"Sudurpashchim", "Bajhang"},
	{"Sudurpashchim", "Bajura"},
	{"Sudurpashchim", "Dadeldhura"},
	{"Sudurpashchim", "Darchula"},
	{"Sudurpashchim", "Doti"},
	{"Sudurpashchim", "Kailali"},
	{"Sudurpashchim", "Kanchanpur"},
}

// SeedGeography seeds the canonical store with Nepal's provinces and
// districts. Safe to re-run: existing nodes are skipped by name.
func SeedGeography(db *gorm.DB) error {
	log.Println("Seeding canonical geography...")

	provinceIDs := make(map[string]string, len(nepalProvinces))

	for _, province := range nepalProvinces {
		existing, err := findByName(db, models.CanonicalStoreID, nil, province.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			provinceIDs[province.Name] = existing.ID
			continue
		}

		node, err := CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
			CountryCode: "NPL",
			Kind:        models.KindProvince,
			Names:       map[string]string{"en": province.Name, "ne": province.Nepali},
		})
		if err != nil {
			return fmt.Errorf("failed to seed province %s: %w", province.Name, err)
		}
		provinceIDs[province.Name] = node.ID
		log.Printf("Created province %s", province.Name)
	}

	created := 0
	for _, district := range nepalDistricts {
		parentID, ok := provinceIDs[district.Province]
		if !ok {
			return fmt.Errorf("district %s references unknown province %s", district.Name, district.Province)
		}

		existing, err := findByName(db, models.CanonicalStoreID, &parentID, district.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		_, err = CreateNode(db, models.CanonicalStoreID, GeoNodeDraft{
			CountryCode: "NPL",
			Kind:        models.KindDistrict,
			ParentID:    &parentID,
			Names:       map[string]string{"en": district.Name},
		})
		if err != nil {
			return fmt.Errorf("failed to seed district %s: %w", district.Name, err)
		}
		created++
	}

	log.Printf("Canonical geography seeding completed (%d districts created)", created)
	return nil
}

// findByName looks up an active node by normalized name under a parent
// (or among roots when parentID is nil)
func findByName(db *gorm.DB, storeID string, parentID *string, name string) (*models.GeoNode, error) {
	q := db.Where("store_id = ? AND normalized_name = ? AND active = ?", storeID, models.NormalizeName(name), true)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	var node models.GeoNode
	err := q.First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %q: %w", name, err)
	}
	return &node, nil
}
