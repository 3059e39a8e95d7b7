// Package walk traverses the commit ancestry graph and triggers a tree
// diff for every (commit, parent) edge whose root trees differ.
package walk

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"churnmap/internal/logging"
	"churnmap/internal/object"
)

// TreeDiffer records path changes between an after tree and a before tree
type TreeDiffer interface {
	Trees(ctx context.Context, after, before object.ID) error
}

// Walker visits every commit reachable from the head exactly once.
// Parent edges are explored concurrently; the visited set is the single
// mutual-exclusion point, checked-and-set atomically so the diffing side
// effect of a visit runs at most once per commit even on merge diamonds.
type Walker struct {
	provider    object.Provider
	differ      TreeDiffer
	logger      *logging.Logger
	concurrency int

	mu      sync.Mutex
	visited map[object.ID]struct{}
}

// New creates a walker. A non-positive concurrency leaves the fan-out
// unbounded.
func New(provider object.Provider, differ TreeDiffer, concurrency int, logger *logging.Logger) *Walker {
	return &Walker{
		provider:    provider,
		differ:      differ,
		logger:      logger,
		concurrency: concurrency,
		visited:     make(map[object.ID]struct{}),
	}
}

// Walk traverses the ancestry of head. The first error cancels the
// remaining traversal; an analysis run is all-or-nothing.
func (w *Walker) Walk(ctx context.Context, head object.ID) error {
	group, ctx := errgroup.WithContext(ctx)
	if w.concurrency > 0 {
		group.SetLimit(w.concurrency)
	}

	if err := w.enqueue(group, ctx, head); err != nil {
		return err
	}
	if err := group.Wait(); err != nil {
		return err
	}

	w.logger.Debug("Commit walk finished", map[string]interface{}{
		"commits": len(w.visited),
	})
	return nil
}

// enqueue schedules the visit of a commit unless it was already
// claimed. When the group is at its limit the visit runs inline instead
// of blocking, which keeps nested spawning deadlock-free.
func (w *Walker) enqueue(group *errgroup.Group, ctx context.Context, id object.ID) error {
	if !w.claim(id) {
		return nil
	}
	task := func() error { return w.visit(group, ctx, id) }
	if w.concurrency > 0 {
		if group.TryGo(task) {
			return nil
		}
		return task()
	}
	group.Go(task)
	return nil
}

// claim marks a commit visited, reporting whether this caller won the claim
func (w *Walker) claim(id object.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.visited[id]; ok {
		return false
	}
	w.visited[id] = struct{}{}
	return true
}

// visit resolves a commit and diffs it against each parent whose root
// tree differs, then explores the parents. Edges of one commit may run
// concurrently with each other and with other visits: path increments
// are commutative, so no order is imposed.
func (w *Walker) visit(group *errgroup.Group, ctx context.Context, id object.ID) error {
	commit, err := w.provider.ResolveCommit(ctx, id)
	if err != nil {
		return err
	}

	for _, parentID := range commit.Parents {
		parent, err := w.provider.ResolveCommit(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.Tree != commit.Tree {
			if err := w.differ.Trees(ctx, commit.Tree, parent.Tree); err != nil {
				return err
			}
		}
		if err := w.enqueue(group, ctx, parentID); err != nil {
			return err
		}
	}
	return nil
}
