package object

import (
	"testing"

	"churnmap/internal/errors"
)

const (
	treeOID   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	parentOID = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	otherOID  = "cccccccccccccccccccccccccccccccccccccccc"
	blobOID   = "dddddddddddddddddddddddddddddddddddddddd"
)

func TestParseCommit(t *testing.T) {
	raw := []byte("tree " + treeOID + "\n" +
		"parent " + parentOID + "\n" +
		"parent " + otherOID + "\n" +
		"author A U Thor <a@example.com> 1700000000 +0000\n" +
		"committer A U Thor <a@example.com> 1700000000 +0000\n" +
		"\n" +
		"Merge branch 'feature'\n")

	commit, err := parseCommit("head", raw)
	if err != nil {
		t.Fatalf("parseCommit failed: %v", err)
	}
	if commit.Tree != ID(treeOID) {
		t.Errorf("Tree = %s", commit.Tree)
	}
	if len(commit.Parents) != 2 || commit.Parents[0] != ID(parentOID) || commit.Parents[1] != ID(otherOID) {
		t.Errorf("Parents = %v", commit.Parents)
	}
}

func TestParseCommitRootHasNoParents(t *testing.T) {
	raw := []byte("tree " + treeOID + "\n" +
		"author A U Thor <a@example.com> 1700000000 +0000\n" +
		"\n" +
		"Initial commit\n")

	commit, err := parseCommit("root", raw)
	if err != nil {
		t.Fatalf("parseCommit failed: %v", err)
	}
	if len(commit.Parents) != 0 {
		t.Errorf("Parents = %v, want none", commit.Parents)
	}
}

func TestParseCommitMissingTree(t *testing.T) {
	raw := []byte("parent " + parentOID + "\n\nmessage\n")

	_, err := parseCommit("broken", raw)
	if !errors.HasCode(err, errors.ProtocolViolation) {
		t.Errorf("error = %v, want PROTOCOL_VIOLATION", err)
	}
}

func TestParseCommitIgnoresTreeWordInMessage(t *testing.T) {
	// "tree" occurring after the blank line is message text, not a header
	raw := []byte("tree " + treeOID + "\n" +
		"\n" +
		"parent " + otherOID + "\n")

	commit, err := parseCommit("head", raw)
	if err != nil {
		t.Fatalf("parseCommit failed: %v", err)
	}
	if len(commit.Parents) != 0 {
		t.Errorf("message line parsed as header: %v", commit.Parents)
	}
}

func TestParseTreeListing(t *testing.T) {
	raw := []byte("100644 blob " + blobOID + "\tREADME.md\n" +
		"040000 tree " + treeOID + "\tsrc\n" +
		"100755 blob " + otherOID + "\tbuild.sh\n")

	entries, err := parseTreeListing("t1", raw)
	if err != nil {
		t.Fatalf("parseTreeListing failed: %v", err)
	}
	want := []TreeEntry{
		{Name: "README.md", Kind: KindBlob, ID: ID(blobOID)},
		{Name: "src", Kind: KindTree, ID: ID(treeOID)},
		{Name: "build.sh", Kind: KindBlob, ID: ID(otherOID)},
	}
	if len(entries) != len(want) {
		t.Fatalf("entries = %v", entries)
	}
	for i, entry := range want {
		if entries[i] != entry {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], entry)
		}
	}
}

func TestParseTreeListingNameWithSpaces(t *testing.T) {
	raw := []byte("100644 blob " + blobOID + "\tmy notes.txt\n")

	entries, err := parseTreeListing("t1", raw)
	if err != nil {
		t.Fatalf("parseTreeListing failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "my notes.txt" {
		t.Errorf("entries = %v", entries)
	}
}

func TestParseTreeListingSubmodule(t *testing.T) {
	raw := []byte("160000 commit " + otherOID + "\tvendor/dep\n")

	_, err := parseTreeListing("t1", raw)
	if !errors.HasCode(err, errors.UnsupportedObjectKind) {
		t.Errorf("error = %v, want UNSUPPORTED_OBJECT_KIND", err)
	}
}

func TestParseTreeListingMalformed(t *testing.T) {
	for _, raw := range []string{
		"100644 blob\tREADME.md\n",
		"100644 blob " + blobOID + " README.md\n",
		"garbage\n",
	} {
		if _, err := parseTreeListing("t1", []byte(raw)); !errors.HasCode(err, errors.ProtocolViolation) {
			t.Errorf("parseTreeListing(%q) error = %v, want PROTOCOL_VIOLATION", raw, err)
		}
	}
}

func TestParseTreeListingEmptyTree(t *testing.T) {
	entries, err := parseTreeListing("t1", nil)
	if err != nil {
		t.Fatalf("parseTreeListing failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}
