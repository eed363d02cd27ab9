package utils

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestDataCache(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenDataCache(dbPath)
	if err != nil {
		t.Fatalf("Failed to open DataCache: %v", err)
	}

	url := "https://example.org/api/taxons/flattened_tree"
	payload := []byte("taxon_id\tparent_taxon_id\nA\t\n")

	if _, ok := cache.Get(url); ok {
		t.Error("Get on an empty cache should miss")
	}
	if err := cache.Put(url, payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := cache.Get(url)
	if !ok || !bytes.Equal(got, payload) {
		t.Errorf("Get mismatch: got (%q, %v)", got, ok)
	}

	if err := cache.Drop(url); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if _, ok := cache.Get(url); ok {
		t.Error("Get after Drop should miss")
	}

	// Persistence across reopen.
	if err := cache.Put(url, payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened, err := OpenDataCache(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Logf("closing reopened cache: %v", err)
		}
	}()
	got, ok = reopened.Get(url)
	if !ok || !bytes.Equal(got, payload) {
		t.Errorf("payload not persisted: got (%q, %v)", got, ok)
	}
}
