package object

import (
	"bytes"
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/packfile"
	gitobject "github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	lru "github.com/hashicorp/golang-lru/v2"

	"churnmap/internal/errors"
	"churnmap/internal/logging"
)

// DefaultTreeCacheSize is the tree LRU size used when the configured
// size is missing or non-positive
const DefaultTreeCacheSize = 4096

// PackProvider resolves objects out of a transfer payload. The payload
// is decoded once into an in-memory object store; delta resolution and
// zlib framing stay inside the packfile decoder.
type PackProvider struct {
	storer *memory.Storage
	trees  *lru.Cache[ID, []TreeEntry]
	logger *logging.Logger
}

// NewPackProvider decodes pack into an in-memory store. Trees are
// resolved repeatedly while diffing, so decoded entries are kept in an
// LRU keyed by tree id.
func NewPackProvider(pack []byte, treeCacheSize int, logger *logging.Logger) (*PackProvider, error) {
	storer := memory.NewStorage()
	if err := packfile.UpdateObjectStorage(storer, bytes.NewReader(pack)); err != nil {
		return nil, errors.New(errors.ProtocolViolation,
			"malformed transfer payload", err)
	}

	if treeCacheSize <= 0 {
		treeCacheSize = DefaultTreeCacheSize
	}
	trees, err := lru.New[ID, []TreeEntry](treeCacheSize)
	if err != nil {
		return nil, errors.New(errors.InternalError, "tree cache init failed", err)
	}

	logger.Debug("Transfer payload decoded", map[string]interface{}{
		"packBytes": len(pack),
	})

	return &PackProvider{
		storer: storer,
		trees:  trees,
		logger: logger,
	}, nil
}

// ResolveCommit returns the parents and root tree of a commit
func (p *PackProvider) ResolveCommit(ctx context.Context, id ID) (*Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	commit, err := gitobject.GetCommit(p.storer, plumbing.NewHash(string(id)))
	if err != nil {
		if err == plumbing.ErrObjectNotFound {
			return nil, errors.Newf(errors.ObjectMissing, "commit %s not in transfer payload", id)
		}
		return nil, errors.New(errors.ObjectMissing, "resolving commit "+string(id), err)
	}

	parents := make([]ID, len(commit.ParentHashes))
	for i, h := range commit.ParentHashes {
		parents[i] = ID(h.String())
	}

	return &Commit{
		ID:      id,
		Parents: parents,
		Tree:    ID(commit.TreeHash.String()),
	}, nil
}

// ResolveTree returns the ordered entries of a file tree
func (p *PackProvider) ResolveTree(ctx context.Context, id ID) ([]TreeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if entries, ok := p.trees.Get(id); ok {
		return entries, nil
	}

	tree, err := gitobject.GetTree(p.storer, plumbing.NewHash(string(id)))
	if err != nil {
		if err == plumbing.ErrObjectNotFound {
			return nil, errors.Newf(errors.ObjectMissing, "tree %s not in transfer payload", id)
		}
		return nil, errors.New(errors.ObjectMissing, "resolving tree "+string(id), err)
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		kind, err := kindForMode(entry.Mode)
		if err != nil {
			return nil, err.WithDetails(map[string]interface{}{
				"tree":  string(id),
				"entry": entry.Name,
				"mode":  entry.Mode.String(),
			})
		}
		entries = append(entries, TreeEntry{
			Name: entry.Name,
			Kind: kind,
			ID:   ID(entry.Hash.String()),
		})
	}

	p.trees.Add(id, entries)
	return entries, nil
}

// kindForMode maps a tree entry file mode to an object kind. Submodule
// entries are a hard error, not a skip.
func kindForMode(mode filemode.FileMode) (Kind, *errors.AnalysisError) {
	switch mode {
	case filemode.Dir:
		return KindTree, nil
	case filemode.Regular, filemode.Deprecated, filemode.Executable, filemode.Symlink:
		return KindBlob, nil
	default:
		return "", errors.Newf(errors.UnsupportedObjectKind,
			"unsupported tree entry mode %s", mode.String())
	}
}
