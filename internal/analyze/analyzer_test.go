package analyze

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"churnmap/internal/config"
	"churnmap/internal/errors"
	"churnmap/internal/pktline"
	"churnmap/internal/storage"
)

const headOID = "1234567890abcdef1234567890abcdef12345678"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.HTTP.TimeoutMs = 5000
	return cfg
}

func headAdvertisement(t *testing.T, oid string) []byte {
	t.Helper()
	body, err := pktline.EncodeString(nil, "# service=git-upload-pack\n")
	if err != nil {
		t.Fatal(err)
	}
	body = pktline.EncodeFlush(body)
	body, err = pktline.EncodeString(body, oid+" HEAD\x00multi_ack filter\n")
	if err != nil {
		t.Fatal(err)
	}
	return pktline.EncodeFlush(body)
}

func TestAnalyzeRemoteFailedDiscoveryStopsImmediately(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	analyzer := New(testConfig(), nil, quietLogger())
	_, err := analyzer.AnalyzeRemote(context.Background(), server.URL+"/repo.git")
	if !errors.HasCode(err, errors.ProtocolViolation) {
		t.Errorf("error = %v, want PROTOCOL_VIOLATION", err)
	}
	if requests != 1 {
		t.Errorf("issued %d requests after failed discovery, want 1", requests)
	}
}

func TestAnalyzeRemoteEmptyRepositoryStopsImmediately(t *testing.T) {
	var requests int
	zero := strings.Repeat("0", 40)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/x-git-upload-pack-advertisement")
		_, _ = w.Write(headAdvertisement(t, zero))
	}))
	defer server.Close()

	analyzer := New(testConfig(), nil, quietLogger())
	_, err := analyzer.AnalyzeRemote(context.Background(), server.URL+"/repo.git")
	if !errors.HasCode(err, errors.EmptyRepository) {
		t.Errorf("error = %v, want EMPTY_REPOSITORY", err)
	}
	if requests != 1 {
		t.Errorf("issued %d requests for an empty repository, want 1", requests)
	}
}

func TestAnalyzeRemoteServesCachedResult(t *testing.T) {
	var negotiations int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			negotiations++
			http.Error(w, "should not be reached", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-git-upload-pack-advertisement")
		_, _ = w.Write(headAdvertisement(t, headOID))
	}))
	defer server.Close()

	cache, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"), time.Hour, quietLogger())
	if err != nil {
		t.Fatalf("cache open failed: %v", err)
	}
	defer cache.Close()

	repoURL := server.URL + "/repo.git"
	cached := &Result{
		HeadReference: headOID,
		Root:          &Node{Type: DirectoryNode, NumFiles: 3, NumChanges: 7},
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.Put(repoURL, headOID, payload); err != nil {
		t.Fatalf("cache put failed: %v", err)
	}

	analyzer := New(testConfig(), cache, quietLogger())
	result, err := analyzer.AnalyzeRemote(context.Background(), repoURL)
	if err != nil {
		t.Fatalf("AnalyzeRemote failed: %v", err)
	}
	if result.HeadReference != headOID {
		t.Errorf("HeadReference = %q", result.HeadReference)
	}
	if result.Root.NumChanges != 7 {
		t.Errorf("Root.NumChanges = %d, want the cached value", result.Root.NumChanges)
	}
	if negotiations != 0 {
		t.Errorf("cached run negotiated %d transfers, want 0", negotiations)
	}
}

func TestAnalyzeLocalRejectsNonRepository(t *testing.T) {
	analyzer := New(testConfig(), nil, quietLogger())
	_, err := analyzer.AnalyzeLocal(context.Background(), t.TempDir())
	if !errors.HasCode(err, errors.InternalError) {
		t.Errorf("error = %v, want INTERNAL_ERROR", err)
	}
}
