// Package diff compares the file trees of adjacent commits and
// attributes content changes to paths.
package diff

import (
	"context"

	"churnmap/internal/changemap"
	"churnmap/internal/object"
)

// RootPrefix is the prefix stack every diff starts from
const RootPrefix = "/"

// Differ records per-path changes between an "after" tree and a
// "before" tree. The diff is asymmetric: changes are attributed to the
// after side's paths only, and a path present on just one side (a
// creation or a deletion) contributes nothing, since there is no prior
// or later content to diff against. Only modifications of a
// pre-existing path count.
type Differ struct {
	provider object.Provider
	changes  *changemap.Map
}

// New creates a differ that accumulates into changes
func New(provider object.Provider, changes *changemap.Map) *Differ {
	return &Differ{
		provider: provider,
		changes:  changes,
	}
}

// Trees diffs the after tree against the before tree, charging every
// modified blob path and each of its ancestor directories, root
// included, with one change.
func (d *Differ) Trees(ctx context.Context, after, before object.ID) error {
	return d.diff(ctx, after, before, []string{RootPrefix})
}

func (d *Differ) diff(ctx context.Context, after, before object.ID, prefix []string) error {
	// Trees are content-addressed: equal ids mean equal contents
	if after == before {
		return nil
	}

	afterEntries, err := d.provider.ResolveTree(ctx, after)
	if err != nil {
		return err
	}
	beforeEntries, err := d.provider.ResolveTree(ctx, before)
	if err != nil {
		return err
	}

	beforeBlobs := make(map[string]object.ID)
	beforeTrees := make(map[string]object.ID)
	for _, entry := range beforeEntries {
		if entry.Kind == object.KindTree {
			beforeTrees[entry.Name] = entry.ID
		} else {
			beforeBlobs[entry.Name] = entry.ID
		}
	}

	dir := prefix[len(prefix)-1]
	for _, entry := range afterEntries {
		if entry.Kind == object.KindTree {
			beforeID, ok := beforeTrees[entry.Name]
			if !ok || beforeID == entry.ID {
				// Created directories carry no prior content to diff
				continue
			}
			extended := append(append([]string(nil), prefix...), dir+entry.Name+"/")
			if err := d.diff(ctx, entry.ID, beforeID, extended); err != nil {
				return err
			}
			continue
		}

		beforeID, ok := beforeBlobs[entry.Name]
		if !ok || beforeID == entry.ID {
			continue
		}
		// One increment per ancestor directory plus the blob itself
		charged := append(append([]string(nil), prefix...), dir+entry.Name)
		d.changes.IncrementAll(charged)
	}

	return nil
}
