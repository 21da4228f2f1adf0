package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the geography services
var (
	ErrNodeNotFound   = errors.New("geo node not found")
	ErrTenantNotFound = errors.New("tenant not found")
)

// ValidationError reports malformed draft input. It is surfaced to the
// caller and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// HierarchyReason classifies why a candidate ancestor chain was rejected
type HierarchyReason string

const (
	ReasonNotChildOf      HierarchyReason = "not_child_of"
	ReasonWrongLevel      HierarchyReason = "wrong_level"
	ReasonInactive        HierarchyReason = "inactive"
	ReasonTooDeep         HierarchyReason = "too_deep"
	ReasonMustStartAtRoot HierarchyReason = "must_start_at_root"
	ReasonUnknownNode     HierarchyReason = "unknown_node"
)

// HierarchyError names the offending chain index and the reason a chain
// failed validation, so a UI layer can render a specific message.
type HierarchyError struct {
	Index  int
	NodeID string
	Reason HierarchyReason
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("hierarchy check failed at index %d (node %s): %s", e.Index, e.NodeID, e.Reason)
}

// ConflictError reports an operation blocked by existing state: duplicate
// sibling names, or deactivation of a node with active dependents.
type ConflictError struct {
	NodeID  string
	Message string
}

func (e *ConflictError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("conflict: %s", e.Message)
	}
	return fmt.Sprintf("conflict on node %s: %s", e.NodeID, e.Message)
}

// MirrorError is the top-level failure of a mirroring pass. Per-node failures
// go into the MirrorReport instead and never abort the batch.
type MirrorError struct {
	TenantStoreID string
	Message       string
	Err           error
}

func (e *MirrorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mirroring failed for store %s: %s: %v", e.TenantStoreID, e.Message, e.Err)
	}
	return fmt.Sprintf("mirroring failed for store %s: %s", e.TenantStoreID, e.Message)
}

func (e *MirrorError) Unwrap() error {
	return e.Err
}
