package main

import (
	"log"

	"party_geo_app_go/config"
	"party_geo_app_go/db"
	"party_geo_app_go/models"
	"party_geo_app_go/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.Tenant{}, &models.GeoNode{}, &models.MirrorMapping{}, &models.GeoReference{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := services.SeedGeography(db.DB); err != nil {
		log.Fatalf("Failed to seed canonical geography: %v", err)
	}
}
