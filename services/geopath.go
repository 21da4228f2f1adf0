package services

import (
	"fmt"
	"strings"
)

// PathSeparator joins node ids into a materialized path. Node ids must never
// contain it, which keeps the encoding injective: two different ancestor
// chains can never produce the same path.
const PathSeparator = "."

// reservedSegmentChars may not appear in node ids. The separator protects
// injectivity; the SQL LIKE wildcards would let an id like "a_c" match
// foreign subtrees in the prefix scans the query engine runs on paths.
const reservedSegmentChars = PathSeparator + "%_"

// GeoPath is the materialized, order-preserving encoding of a node's ancestor
// chain from root to the node itself. Prefix-descendant tests on GeoPaths are
// plain string comparisons instead of recursive store round-trips.
type GeoPath string

// EncodePath encodes an ordered ancestor chain (root first) into a GeoPath.
// The codec does not verify node existence or chain length limits; that is
// the validator's job, which keeps encoding pure and side-effect free.
func EncodePath(chain []string) (GeoPath, error) {
	if len(chain) == 0 {
		return "", &ValidationError{Field: "chain", Message: "ancestor chain is empty"}
	}
	for _, id := range chain {
		if id == "" {
			return "", &ValidationError{Field: "chain", Message: "ancestor chain contains an empty id"}
		}
		if strings.ContainsAny(id, reservedSegmentChars) {
			return "", &ValidationError{Field: "chain", Message: fmt.Sprintf("node id must not contain any of %q", reservedSegmentChars)}
		}
	}
	return GeoPath(strings.Join(chain, PathSeparator)), nil
}

// DecodePath returns the ordered ancestor chain encoded in p, root first
func DecodePath(p GeoPath) []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), PathSeparator)
}

// PathDepth returns the number of segments in p (0 for the empty path)
func PathDepth(p GeoPath) int {
	if p == "" {
		return 0
	}
	return strings.Count(string(p), PathSeparator) + 1
}

// LeafID returns the final segment of p, the id of the node itself
func LeafID(p GeoPath) string {
	chain := DecodePath(p)
	if len(chain) == 0 {
		return ""
	}
	return chain[len(chain)-1]
}

// IsDescendantPath reports whether candidate lies in the subtree rooted at
// ancestor. The test is segment-wise, not substring-wise: id "12" is not a
// descendant of id "1". A path counts as a descendant of itself, which is
// what jurisdiction scoping needs.
func IsDescendantPath(candidate, ancestor GeoPath) bool {
	if ancestor == "" || candidate == "" {
		return false
	}
	if candidate == ancestor {
		return true
	}
	return strings.HasPrefix(string(candidate), string(ancestor)+PathSeparator)
}

// ChildPath appends a node id to a parent path. An empty parent produces a
// root path consisting of the id alone.
func ChildPath(parent GeoPath, id string) GeoPath {
	if parent == "" {
		return GeoPath(id)
	}
	return parent + GeoPath(PathSeparator) + GeoPath(id)
}
