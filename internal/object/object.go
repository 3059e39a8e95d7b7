// Package object defines the commit and tree object model and the
// Provider interface the analysis core resolves objects through.
package object

import (
	"context"
	"regexp"

	"churnmap/internal/errors"
)

// ID is a 40-character lowercase hex object identifier
type ID string

// ZeroID is the null identifier a server advertises for an empty repository
const ZeroID ID = "0000000000000000000000000000000000000000"

var idPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// ParseID validates a 40-hex-character object identifier
func ParseID(s string) (ID, error) {
	if !idPattern.MatchString(s) {
		return "", errors.Newf(errors.ProtocolViolation,
			"malformed object id %q", s)
	}
	return ID(s), nil
}

// IsZero reports whether the id is the null identifier
func (id ID) IsZero() bool {
	return id == ZeroID
}

// Kind is the kind of object a tree entry points at
type Kind string

const (
	// KindBlob is file content
	KindBlob Kind = "blob"
	// KindTree is a nested file tree
	KindTree Kind = "tree"
)

// Commit is an immutable snapshot reference: zero parents for a root
// commit, one for a normal commit, two or more for a merge.
type Commit struct {
	ID      ID
	Parents []ID
	Tree    ID
}

// TreeEntry is one named child of a file tree. Name is a single path
// segment without separators.
type TreeEntry struct {
	Name string
	Kind Kind
	ID   ID
}

// Provider resolves commit and tree identifiers to their contents.
// Implementations must reject entry kinds other than blob and tree with
// an UNSUPPORTED_OBJECT_KIND error rather than skipping them: silently
// dropping a submodule entry would corrupt change attribution.
type Provider interface {
	ResolveCommit(ctx context.Context, id ID) (*Commit, error)
	ResolveTree(ctx context.Context, id ID) ([]TreeEntry, error)
}
