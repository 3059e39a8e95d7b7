package object

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"

	"churnmap/internal/errors"
	"churnmap/internal/logging"
)

func TestKindForMode(t *testing.T) {
	blobs := []filemode.FileMode{
		filemode.Regular,
		filemode.Deprecated,
		filemode.Executable,
		filemode.Symlink,
	}
	for _, mode := range blobs {
		kind, err := kindForMode(mode)
		if err != nil {
			t.Errorf("kindForMode(%s) failed: %v", mode, err)
		}
		if kind != KindBlob {
			t.Errorf("kindForMode(%s) = %s, want blob", mode, kind)
		}
	}

	kind, err := kindForMode(filemode.Dir)
	if err != nil {
		t.Fatalf("kindForMode(dir) failed: %v", err)
	}
	if kind != KindTree {
		t.Errorf("kindForMode(dir) = %s, want tree", kind)
	}

	if _, err := kindForMode(filemode.Submodule); !errors.HasCode(err, errors.UnsupportedObjectKind) {
		t.Errorf("submodule error = %v, want UNSUPPORTED_OBJECT_KIND", err)
	}
}

func TestNewPackProviderRejectsGarbage(t *testing.T) {
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.ErrorLevel})
	_, err := NewPackProvider([]byte("not a packfile"), 0, logger)
	if !errors.HasCode(err, errors.ProtocolViolation) {
		t.Errorf("error = %v, want PROTOCOL_VIOLATION", err)
	}
}
