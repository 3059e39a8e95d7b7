// Package analyze drives a full analysis run: reference discovery,
// transfer negotiation, the commit walk with per-edge tree diffs, and
// aggregation into the annotated result tree. A run is all-or-nothing:
// it yields either the complete head-rooted tree or a single error.
package analyze

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"churnmap/internal/changemap"
	"churnmap/internal/config"
	"churnmap/internal/diff"
	"churnmap/internal/logging"
	"churnmap/internal/object"
	"churnmap/internal/protocol"
	"churnmap/internal/storage"
	"churnmap/internal/walk"
)

// Result is the public outcome of a successful analysis
type Result struct {
	HeadReference string `json:"headReference" yaml:"headReference"`
	Root          *Node  `json:"root" yaml:"root"`
}

// Analyzer runs analyses against remote repositories or local clones
type Analyzer struct {
	cfg    *config.Config
	logger *logging.Logger
	client *protocol.Client
	cache  *storage.Cache
}

// New creates an analyzer. cache may be nil to disable result caching.
func New(cfg *config.Config, cache *storage.Cache, logger *logging.Logger) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		logger: logger,
		client: protocol.NewClient(cfg.HTTPTimeout(), cfg.HTTP.UserAgent, logger),
		cache:  cache,
	}
}

// AnalyzeRemote analyzes the repository served at repoURL over the
// smart transfer protocol.
func (a *Analyzer) AnalyzeRemote(ctx context.Context, repoURL string) (*Result, error) {
	logger := a.logger.With(map[string]interface{}{
		"run":  uuid.New().String(),
		"repo": repoURL,
	})
	start := time.Now()

	head, err := a.client.DiscoverHead(ctx, repoURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Discovered default reference", map[string]interface{}{
		"head": string(head),
	})

	if a.cache != nil {
		if payload, ok := a.cache.Get(repoURL, string(head)); ok {
			result := &Result{}
			if err := json.Unmarshal(payload, result); err == nil {
				logger.Info("Serving cached analysis", map[string]interface{}{
					"head": string(head),
				})
				return result, nil
			}
			logger.Warn("Discarding undecodable cache entry", nil)
		}
	}

	pack, err := a.client.FetchPack(ctx, repoURL, head)
	if err != nil {
		return nil, err
	}

	provider, err := object.NewPackProvider(pack, a.cfg.Walker.TreeCacheSize, logger)
	if err != nil {
		return nil, err
	}

	result, err := Run(ctx, provider, head, a.cfg.Walker.Concurrency, logger)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := a.cache.Put(repoURL, string(head), payload); err != nil {
				logger.Warn("Failed to cache analysis", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	logger.Info("Analysis finished", map[string]interface{}{
		"head":     string(head),
		"files":    result.Root.NumFiles,
		"duration": time.Since(start).String(),
	})
	return result, nil
}

// AnalyzeLocal analyzes a full local clone instead of a remote endpoint
func (a *Analyzer) AnalyzeLocal(ctx context.Context, dir string) (*Result, error) {
	logger := a.logger.With(map[string]interface{}{
		"run":   uuid.New().String(),
		"clone": dir,
	})

	provider, err := object.NewCloneProvider(dir, a.cfg.GitTimeout(), logger)
	if err != nil {
		return nil, err
	}
	head, err := provider.HeadCommit(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Resolved local head", map[string]interface{}{
		"head": string(head),
	})

	return Run(ctx, provider, head, a.cfg.Walker.Concurrency, logger)
}

// Run executes the walk-diff-aggregate pipeline over any object graph
// provider, starting from the given head commit.
func Run(ctx context.Context, provider object.Provider, head object.ID, concurrency int, logger *logging.Logger) (*Result, error) {
	changes := changemap.New()
	differ := diff.New(provider, changes)
	walker := walk.New(provider, differ, concurrency, logger)

	if err := walker.Walk(ctx, head); err != nil {
		return nil, err
	}

	commit, err := provider.ResolveCommit(ctx, head)
	if err != nil {
		return nil, err
	}

	root, err := BuildTree(ctx, provider, commit.Tree, changes)
	if err != nil {
		return nil, err
	}

	logger.Debug("Aggregation finished", map[string]interface{}{
		"changedPaths": changes.Len(),
		"files":        root.NumFiles,
	})

	return &Result{
		HeadReference: string(head),
		Root:          root,
	}, nil
}
