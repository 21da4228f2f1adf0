package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"party_geo_app_go/config"
	"party_geo_app_go/db"
	"party_geo_app_go/logger"
	"party_geo_app_go/services"

	"go.uber.org/zap"
)

func main() {
	tenantSlug := flag.String("tenant", "", "slug of the tenant to inspect (required)")
	asJSON := flag.Bool("json", false, "emit the report as JSON")
	correct := flag.Bool("correct", false, "apply canonical values to every drifted node")
	flag.Parse()

	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	if *tenantSlug == "" {
		logr.Fatal("-tenant is required")
	}

	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tenant, err := services.GetTenantBySlug(db.DB, *tenantSlug)
	if err != nil {
		logr.Fatal("tenant lookup failed", zap.Error(err))
	}

	mirror := services.NewMirrorService(db.DB, logr, cfg.MirrorBatchSize)
	entries, err := mirror.DetectDrift(ctx, tenant.StoreID())
	if err != nil {
		logr.Fatal("drift detection failed", zap.Error(err))
	}

	if *asJSON {
		encoded, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			logr.Fatal("failed to encode report", zap.Error(err))
		}
		fmt.Println(string(encoded))
	} else {
		for _, entry := range entries {
			fmt.Printf("%-15s local=%s canonical=%s %q -> %q\n",
				entry.Kind, entry.LocalID, entry.CanonicalID, entry.LocalValue, entry.CanonicalValue)
		}
		fmt.Printf("%d drift entr(y/ies) for tenant %s\n", len(entries), tenant.Slug)
	}

	if *correct && len(entries) > 0 {
		if err := mirror.CorrectDrift(tenant.StoreID(), entries); err != nil {
			logr.Fatal("drift correction failed", zap.Error(err))
		}
		logr.Info("drift corrected", zap.Int("entries", len(entries)))
	}
}
