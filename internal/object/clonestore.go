package object

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"churnmap/internal/errors"
	"churnmap/internal/logging"
)

// DefaultGitTimeout bounds a single git invocation against a local clone
const DefaultGitTimeout = 5000 * time.Millisecond

// CloneProvider resolves objects by shelling out to git against a full
// local clone. It is the local-replica alternative to PackProvider.
type CloneProvider struct {
	dir     string
	timeout time.Duration
	logger  *logging.Logger
}

// NewCloneProvider creates a provider over the clone at dir
func NewCloneProvider(dir string, timeout time.Duration, logger *logging.Logger) (*CloneProvider, error) {
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.Newf(errors.InternalError, "%s is not a directory", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		// Bare clones keep objects at the top level
		if _, err := os.Stat(filepath.Join(dir, "objects")); err != nil {
			return nil, errors.Newf(errors.InternalError, "%s is not a git repository", dir)
		}
	}

	return &CloneProvider{
		dir:     dir,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// HeadCommit resolves the clone's default reference
func (p *CloneProvider) HeadCommit(ctx context.Context) (ID, error) {
	out, err := p.runGit(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return ParseID(strings.TrimSpace(string(out)))
}

// ResolveCommit returns the parents and root tree of a commit
func (p *CloneProvider) ResolveCommit(ctx context.Context, id ID) (*Commit, error) {
	out, err := p.runGit(ctx, "cat-file", "commit", string(id))
	if err != nil {
		return nil, err
	}
	return parseCommit(id, out)
}

// ResolveTree returns the ordered entries of a file tree
func (p *CloneProvider) ResolveTree(ctx context.Context, id ID) ([]TreeEntry, error) {
	out, err := p.runGit(ctx, "cat-file", "-p", string(id))
	if err != nil {
		return nil, err
	}
	return parseTreeListing(id, out)
}

// runGit executes a git command in the clone with a timeout
func (p *CloneProvider) runGit(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = p.dir

	p.logger.Debug("Executing git command", map[string]interface{}{
		"args":    args,
		"timeout": p.timeout.String(),
	})

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(stderr, "does not exist") || strings.Contains(stderr, "Not a valid object name") {
				return nil, errors.Newf(errors.ObjectMissing, "object not found in clone: git %s", strings.Join(args, " "))
			}
			return nil, errors.New(errors.InternalError, "git command failed", err).
				WithDetails(map[string]interface{}{
					"args":   args,
					"stderr": stderr,
				})
		}
		return nil, errors.New(errors.InternalError, "failed to execute git", err)
	}

	return output, nil
}

// parseCommit extracts the tree and parent ids from a raw commit object.
// The header is newline-delimited "tree <id>" and "parent <id>" lines
// before the first blank line; everything after is the message.
func parseCommit(id ID, data []byte) (*Commit, error) {
	header := string(data)
	if i := strings.Index(header, "\n\n"); i >= 0 {
		header = header[:i]
	}

	commit := &Commit{ID: id}
	for _, line := range strings.Split(header, "\n") {
		name, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		switch name {
		case "tree":
			tree, err := ParseID(value)
			if err != nil {
				return nil, err
			}
			commit.Tree = tree
		case "parent":
			parent, err := ParseID(value)
			if err != nil {
				return nil, err
			}
			commit.Parents = append(commit.Parents, parent)
		}
	}

	if commit.Tree == "" {
		return nil, errors.Newf(errors.ProtocolViolation, "commit %s has no tree", id)
	}
	return commit, nil
}

// parseTreeListing parses `git cat-file -p <tree>` output: one
// "<mode> <kind> <id>\t<name>" line per entry.
func parseTreeListing(id ID, data []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		meta, name, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, errors.Newf(errors.ProtocolViolation, "malformed tree listing line %q in %s", line, id)
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 {
			return nil, errors.Newf(errors.ProtocolViolation, "malformed tree listing line %q in %s", line, id)
		}

		var kind Kind
		switch fields[1] {
		case "blob":
			kind = KindBlob
		case "tree":
			kind = KindTree
		default:
			return nil, errors.Newf(errors.UnsupportedObjectKind,
				"unsupported tree entry kind %q", fields[1]).
				WithDetails(map[string]interface{}{
					"tree":  string(id),
					"entry": name,
				})
		}

		entryID, err := ParseID(fields[2])
		if err != nil {
			return nil, err
		}
		entries = append(entries, TreeEntry{Name: name, Kind: kind, ID: entryID})
	}
	return entries, nil
}
