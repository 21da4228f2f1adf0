package services

import (
	"context"
	"fmt"
	"strconv"

	"party_geo_app_go/models"

	"go.uber.org/zap"
)

// DriftKind classifies a divergence between a mirrored node and its canonical
// source
type DriftKind string

const (
	DriftRenamed       DriftKind = "renamed"
	DriftLevelChanged  DriftKind = "level_changed"
	DriftActiveChanged DriftKind = "active_changed"
	DriftOrphaned      DriftKind = "orphaned" // canonical counterpart no longer exists
)

// DriftEntry reports one field-level mismatch. Detection never mutates the
// tenant store; correction is a separate, administrator-triggered operation
// so a tenant's local display-name customizations are never silently
// overwritten.
type DriftEntry struct {
	TenantStoreID  string    `json:"tenant_store_id"`
	LocalID        string    `json:"local_id"`
	CanonicalID    string    `json:"canonical_id"`
	Kind           DriftKind `json:"kind"`
	LocalValue     string    `json:"local_value"`
	CanonicalValue string    `json:"canonical_value"`
}

// DetectDrift compares every mirrored node in the tenant store against its
// canonical counterpart (via the external id) and reports mismatches in
// name, level and active flag. Mirrored nodes are walked in id-keyset batches
// so arbitrarily large tenant trees stream through bounded memory.
func (s *MirrorService) DetectDrift(ctx context.Context, tenantStoreID string) ([]DriftEntry, error) {
	var entries []DriftEntry

	lastID := ""
	for {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		var mirrored []models.GeoNode
		err := s.db.Where("store_id = ? AND is_official = ? AND id > ?", tenantStoreID, true, lastID).
			Order("id ASC").Limit(s.batchSize).Find(&mirrored).Error
		if err != nil {
			return nil, fmt.Errorf("failed to fetch mirrored nodes: %w", err)
		}
		if len(mirrored) == 0 {
			break
		}
		lastID = mirrored[len(mirrored)-1].ID

		externalIDs := make([]string, 0, len(mirrored))
		for _, node := range mirrored {
			if node.ExternalID != nil {
				externalIDs = append(externalIDs, *node.ExternalID)
			}
		}

		var canonicals []models.GeoNode
		err = s.db.Where("store_id = ? AND id IN ?", models.CanonicalStoreID, externalIDs).Find(&canonicals).Error
		if err != nil {
			return nil, fmt.Errorf("failed to fetch canonical counterparts: %w", err)
		}
		byID := make(map[string]*models.GeoNode, len(canonicals))
		for i := range canonicals {
			byID[canonicals[i].ID] = &canonicals[i]
		}

		for i := range mirrored {
			local := &mirrored[i]
			if local.ExternalID == nil {
				continue
			}
			canonical, ok := byID[*local.ExternalID]
			if !ok {
				entries = append(entries, DriftEntry{
					TenantStoreID: tenantStoreID,
					LocalID:       local.ID,
					CanonicalID:   *local.ExternalID,
					Kind:          DriftOrphaned,
					LocalValue:    local.Name,
				})
				continue
			}
			if local.Name != canonical.Name {
				entries = append(entries, driftEntry(tenantStoreID, local, canonical, DriftRenamed, local.Name, canonical.Name))
			}
			if local.Level != canonical.Level {
				entries = append(entries, driftEntry(tenantStoreID, local, canonical, DriftLevelChanged,
					strconv.Itoa(local.Level), strconv.Itoa(canonical.Level)))
			}
			if local.Active != canonical.Active {
				entries = append(entries, driftEntry(tenantStoreID, local, canonical, DriftActiveChanged,
					strconv.FormatBool(local.Active), strconv.FormatBool(canonical.Active)))
			}
		}
	}

	s.log.Info("drift detection finished",
		zap.String("tenant_store", tenantStoreID),
		zap.Int("entries", len(entries)))
	return entries, nil
}

// CorrectDrift applies canonical values to the mirrored nodes named in
// entries. Correction is deliberate and entry-scoped: nothing outside the
// given entries is touched, and orphaned entries are left for an
// administrator to retire by hand.
func (s *MirrorService) CorrectDrift(tenantStoreID string, entries []DriftEntry) error {
	for _, entry := range entries {
		if entry.TenantStoreID != tenantStoreID {
			return &ValidationError{Field: "entries", Message: "drift entry belongs to a different tenant store"}
		}
		if entry.Kind == DriftOrphaned {
			continue
		}

		canonical, err := GetNode(s.db, models.CanonicalStoreID, entry.CanonicalID)
		if err != nil {
			return err
		}
		local, err := GetNode(s.db, tenantStoreID, entry.LocalID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		switch entry.Kind {
		case DriftRenamed:
			// The canonical name may already be taken by a custom sibling
			// in the tenant store; surface that as a conflict instead of
			// tripping the unique index
			clash, err := activeSiblingExists(s.db, tenantStoreID, local.ParentID, canonical.NormalizedName, local.ID)
			if err != nil {
				return err
			}
			if clash {
				return &ConflictError{NodeID: local.ID, Message: fmt.Sprintf("an active sibling named %q already exists", canonical.Name)}
			}
			updates["name"] = canonical.Name
			updates["normalized_name"] = canonical.NormalizedName
			updates["alt_names"] = canonical.AltNames
		case DriftLevelChanged:
			updates["level"] = canonical.Level
		case DriftActiveChanged:
			updates["active"] = canonical.Active
		default:
			return &ValidationError{Field: "entries", Message: fmt.Sprintf("unknown drift kind %q", entry.Kind)}
		}

		if err := s.db.Model(local).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to correct drift on node %s: %w", local.ID, err)
		}
		s.log.Info("drift corrected",
			zap.String("tenant_store", tenantStoreID),
			zap.String("local_id", local.ID),
			zap.String("kind", string(entry.Kind)))
	}
	return nil
}

func driftEntry(tenantStoreID string, local, canonical *models.GeoNode, kind DriftKind, localValue, canonicalValue string) DriftEntry {
	return DriftEntry{
		TenantStoreID:  tenantStoreID,
		LocalID:        local.ID,
		CanonicalID:    canonical.ID,
		Kind:           kind,
		LocalValue:     localValue,
		CanonicalValue: canonicalValue,
	}
}
