package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"party_geo_app_go/config"
	"party_geo_app_go/db"
	"party_geo_app_go/logger"
	"party_geo_app_go/models"
	"party_geo_app_go/services"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

func main() {
	tenantSlug := flag.String("tenant", "", "slug of the tenant to mirror (required)")
	provision := flag.Bool("provision", false, "create the tenant first, then mirror")
	name := flag.String("name", "", "tenant display name (with -provision)")
	country := flag.String("country", "", "3-letter country code (with -provision; defaults to DEFAULT_COUNTRY)")
	roots := flag.String("roots", "", "comma-separated canonical root ids; empty mirrors the whole country")
	flag.Parse()

	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.Tenant{}, &models.GeoNode{}, &models.MirrorMapping{}, &models.GeoReference{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Cancel the pass cleanly on Ctrl-C; a cancelled run is resumable by
	// re-invoking the same command.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mirror := services.NewMirrorService(db.DB, logr, cfg.MirrorBatchSize)

	bar := progressbar.Default(-1, "mirroring nodes")
	mirror.OnNode = func(string) {
		_ = bar.Add(1)
	}

	if *provision {
		tenantName := *name
		if tenantName == "" {
			logr.Fatal("-name is required with -provision")
		}
		countryCode := *country
		if countryCode == "" {
			countryCode = cfg.DefaultCountry
		}
		tenant, report, err := services.ProvisionTenant(ctx, db.DB, mirror, tenantName, countryCode)
		if err != nil {
			logr.Fatal("provisioning failed", zap.Error(err))
		}
		_ = bar.Finish()
		logr.Info("tenant provisioned",
			zap.String("slug", tenant.Slug),
			zap.String("store", tenant.StoreID()),
			zap.Int("created", report.Created),
			zap.Int("skipped", report.Skipped),
			zap.Int("failures", len(report.Failures)))
		return
	}

	if *tenantSlug == "" {
		logr.Fatal("-tenant is required (or use -provision)")
	}

	tenant, err := services.GetTenantBySlug(db.DB, *tenantSlug)
	if err != nil {
		logr.Fatal("tenant lookup failed", zap.Error(err))
	}

	var rootIDs []string
	if *roots != "" {
		for _, id := range strings.Split(*roots, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				rootIDs = append(rootIDs, trimmed)
			}
		}
	}

	report, err := mirror.MirrorSubtree(ctx, tenant.StoreID(), rootIDs)
	if err != nil {
		if report != nil {
			logr.Warn("pass interrupted, re-run to resume",
				zap.Int("created", report.Created),
				zap.Int("skipped", report.Skipped))
		}
		logr.Fatal("mirroring failed", zap.Error(err))
	}
	_ = bar.Finish()

	for _, failure := range report.Failures {
		logr.Warn("node not mirrored",
			zap.String("canonical_id", failure.CanonicalID),
			zap.String("reason", failure.Reason))
	}
	logr.Info("mirroring completed",
		zap.String("tenant", tenant.Slug),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("duration", report.Duration))
}
