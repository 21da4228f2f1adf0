package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"party_geo_app_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Per-node failure reasons recorded in a MirrorReport
const (
	MirrorReasonParentNotMirrored = "parent not mirrored"
	MirrorReasonNameConflict      = "duplicate sibling name in tenant store"
	MirrorReasonCanonicalMissing  = "canonical node not found"
)

// MirrorFailure records a single canonical node the synchronizer could not
// mirror. Failures never abort the pass; the caller decides whether partial
// mirroring is acceptable.
type MirrorFailure struct {
	CanonicalID string `json:"canonical_id"`
	Reason      string `json:"reason"`
}

// MirrorReport summarizes one mirroring pass
type MirrorReport struct {
	TenantStoreID string          `json:"tenant_store_id"`
	Created       int             `json:"created"`
	Skipped       int             `json:"skipped"`
	Failures      []MirrorFailure `json:"failures,omitempty"`
	Duration      time.Duration   `json:"duration"`
}

// MirrorService copies canonical subtrees into tenant stores and keeps the
// mirror mapping. It also detects (and, on explicit request, corrects) drift
// between mirrored nodes and their canonical sources.
type MirrorService struct {
	db        *gorm.DB
	log       *zap.Logger
	batchSize int

	// OnNode, when set, is invoked after every processed canonical node.
	// The mirror CLI hangs a progress bar off it.
	OnNode func(canonicalID string)
}

func NewMirrorService(db *gorm.DB, log *zap.Logger, batchSize int) *MirrorService {
	if log == nil {
		log = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &MirrorService{db: db, log: log, batchSize: batchSize}
}

// MirrorSubtree populates tenantStoreID with official copies of the canonical
// subtrees rooted at canonicalRootIDs, or of every level-1 node of the
// tenant's country when no roots are given.
//
// Traversal is level-order so a child's local parent id is always resolved
// before the child is created. Each node is its own atomic step (node row +
// mapping row in one small transaction) rather than one all-or-nothing
// transaction: canonical trees run to tens of thousands of nodes and partial
// progress must survive a crash. Already-mapped nodes are skipped, which
// makes re-running the same call both the idempotency and the resume
// mechanism. Cancellation is checked between nodes and leaves a
// self-consistent partial tree.
func (s *MirrorService) MirrorSubtree(ctx context.Context, tenantStoreID string, canonicalRootIDs []string) (*MirrorReport, error) {
	start := time.Now()
	report := &MirrorReport{TenantStoreID: tenantStoreID}

	if tenantStoreID == "" || tenantStoreID == models.CanonicalStoreID {
		return nil, &MirrorError{TenantStoreID: tenantStoreID, Message: "a tenant store id is required"}
	}

	frontier, err := s.resolveRoots(tenantStoreID, canonicalRootIDs, report)
	if err != nil {
		return nil, err
	}

	s.log.Info("mirroring pass started",
		zap.String("tenant_store", tenantStoreID),
		zap.Int("roots", len(frontier)))

	// Overlapping root sets (a node given alongside its own ancestor) would
	// enqueue the inner subtree twice; each canonical id is processed once
	seen := make(map[string]bool, len(frontier))

	for len(frontier) > 0 {
		next := make([]string, 0, len(frontier))

		for i := range frontier {
			node := &frontier[i]
			if seen[node.ID] {
				continue
			}
			seen[node.ID] = true
			if err := ctx.Err(); err != nil {
				report.Duration = time.Since(start)
				s.log.Warn("mirroring pass cancelled",
					zap.String("tenant_store", tenantStoreID),
					zap.Int("created", report.Created),
					zap.Int("skipped", report.Skipped))
				return report, err
			}

			ok := s.mirrorOne(tenantStoreID, node, report)
			if s.OnNode != nil {
				s.OnNode(node.ID)
			}
			if ok {
				next = append(next, node.ID)
			}
		}

		frontier, err = s.canonicalChildren(next)
		if err != nil {
			report.Duration = time.Since(start)
			return report, &MirrorError{TenantStoreID: tenantStoreID, Message: "canonical store read failed", Err: err}
		}
	}

	now := time.Now()
	err = s.db.Model(&models.Tenant{}).Where("id = ?", tenantStoreID).Update("mirrored_at", now).Error
	if err != nil {
		s.log.Warn("failed to record mirror completion time",
			zap.String("tenant_store", tenantStoreID),
			zap.Error(err))
	}

	report.Duration = time.Since(start)
	s.log.Info("mirroring pass finished",
		zap.String("tenant_store", tenantStoreID),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// resolveRoots loads the canonical starting set: the explicit root ids, or
// all level-1 nodes of the tenant's country
func (s *MirrorService) resolveRoots(tenantStoreID string, canonicalRootIDs []string, report *MirrorReport) ([]models.GeoNode, error) {
	if len(canonicalRootIDs) == 0 {
		var tenant models.Tenant
		err := s.db.Where("id = ?", tenantStoreID).First(&tenant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &MirrorError{TenantStoreID: tenantStoreID, Message: "no roots given and no tenant record to derive a country from"}
		}
		if err != nil {
			return nil, &MirrorError{TenantStoreID: tenantStoreID, Message: "failed to load tenant", Err: err}
		}
		roots, err := RootsOf(s.db, models.CanonicalStoreID, tenant.CountryCode, false)
		if err != nil {
			return nil, &MirrorError{TenantStoreID: tenantStoreID, Message: "canonical store read failed", Err: err}
		}
		return roots, nil
	}

	var roots []models.GeoNode
	err := s.db.Where("store_id = ? AND id IN ?", models.CanonicalStoreID, canonicalRootIDs).
		Order("level ASC, name ASC").Find(&roots).Error
	if err != nil {
		return nil, &MirrorError{TenantStoreID: tenantStoreID, Message: "canonical store read failed", Err: err}
	}

	found := make(map[string]bool, len(roots))
	for _, r := range roots {
		found[r.ID] = true
	}
	for _, id := range canonicalRootIDs {
		if !found[id] {
			report.Failures = append(report.Failures, MirrorFailure{CanonicalID: id, Reason: MirrorReasonCanonicalMissing})
		}
	}
	return roots, nil
}

// mirrorOne mirrors a single canonical node. It returns true when the node is
// present in the tenant store afterwards (created now or already mapped), so
// the traversal knows whether to descend into its children.
func (s *MirrorService) mirrorOne(tenantStoreID string, canonical *models.GeoNode, report *MirrorReport) bool {
	if _, err := s.lookupMapping(tenantStoreID, canonical.ID); err == nil {
		report.Skipped++
		return true
	}

	var localParentID *string
	var localParentPath GeoPath
	if canonical.ParentID != nil {
		parentMapping, err := s.lookupMapping(tenantStoreID, *canonical.ParentID)
		if err != nil {
			// Happens when the caller supplied a non-root starting set whose
			// parents were never mirrored. Recorded, not fatal.
			report.Failures = append(report.Failures, MirrorFailure{CanonicalID: canonical.ID, Reason: MirrorReasonParentNotMirrored})
			return false
		}
		local, err := GetNode(s.db, tenantStoreID, parentMapping.LocalID)
		if err != nil {
			report.Failures = append(report.Failures, MirrorFailure{CanonicalID: canonical.ID, Reason: MirrorReasonParentNotMirrored})
			return false
		}
		localParentID = &local.ID
		localParentPath = GeoPath(local.Path)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Re-check under the transaction: a concurrent pass for the same
		// tenant may have won the race. The loser becomes a no-op skip.
		var existing int64
		tx.Model(&models.MirrorMapping{}).
			Where("tenant_store_id = ? AND canonical_id = ?", tenantStoreID, canonical.ID).
			Count(&existing)
		if existing > 0 {
			report.Skipped++
			return nil
		}

		externalID := canonical.ID
		local := &models.GeoNode{
			StoreID:        tenantStoreID,
			CountryCode:    canonical.CountryCode,
			Level:          canonical.Level,
			ParentID:       localParentID,
			Name:           canonical.Name,
			NormalizedName: canonical.NormalizedName,
			AltNames:       canonical.AltNames,
			Kind:           canonical.Kind,
			IsOfficial:     true,
			ExternalID:     &externalID,
			Active:         canonical.Active,
		}
		local.ID = "" // generated below so the path can embed it
		if err := local.BeforeCreate(tx); err != nil {
			return err
		}
		local.Path = string(ChildPath(localParentPath, local.ID))

		if err := insertNode(tx, local); err != nil {
			return err
		}
		mapping := &models.MirrorMapping{
			TenantStoreID: tenantStoreID,
			CanonicalID:   canonical.ID,
			LocalID:       local.ID,
		}
		if err := tx.Create(mapping).Error; err != nil {
			return fmt.Errorf("failed to record mirror mapping for %s: %w", canonical.ID, err)
		}
		report.Created++
		return nil
	})

	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			// A pre-existing custom node holds this name slot. Recorded so an
			// administrator can resolve it; the rest of the pass continues.
			report.Failures = append(report.Failures, MirrorFailure{CanonicalID: canonical.ID, Reason: MirrorReasonNameConflict})
			s.log.Warn("mirror name conflict",
				zap.String("tenant_store", tenantStoreID),
				zap.String("canonical_id", canonical.ID),
				zap.String("name", canonical.Name))
			return false
		}
		report.Failures = append(report.Failures, MirrorFailure{CanonicalID: canonical.ID, Reason: err.Error()})
		s.log.Error("mirror step failed",
			zap.String("tenant_store", tenantStoreID),
			zap.String("canonical_id", canonical.ID),
			zap.Error(err))
		return false
	}
	return true
}

// canonicalChildren fetches the next traversal level, chunking parent ids to
// stay under sqlite's bound-variable limit
func (s *MirrorService) canonicalChildren(parentIDs []string) ([]models.GeoNode, error) {
	var children []models.GeoNode
	for start := 0; start < len(parentIDs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(parentIDs) {
			end = len(parentIDs)
		}
		var batch []models.GeoNode
		err := s.db.Where("store_id = ? AND parent_id IN ?", models.CanonicalStoreID, parentIDs[start:end]).
			Order("name ASC").Find(&batch).Error
		if err != nil {
			return nil, err
		}
		children = append(children, batch...)
	}
	return children, nil
}

func (s *MirrorService) lookupMapping(tenantStoreID, canonicalID string) (*models.MirrorMapping, error) {
	var mapping models.MirrorMapping
	err := s.db.Where("tenant_store_id = ? AND canonical_id = ?", tenantStoreID, canonicalID).
		First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
