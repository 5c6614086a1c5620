package storage

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	content := "Subject: Hi\n\nHello"
	key, err := store.Put(ctx, "corpus.txt", "abc123", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if key != "abc123.txt" {
		t.Errorf("Put() key = %q, want %q", key, "abc123.txt")
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != content {
		t.Errorf("Get() = %q, want %q", string(data), content)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, key); err == nil {
		t.Error("Get() after delete succeeded")
	}
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		if _, err := store.Get(ctx, key); err == nil {
			t.Errorf("Get(%q) succeeded, want error", key)
		}
		if err := store.Delete(ctx, key); err == nil {
			t.Errorf("Delete(%q) succeeded, want error", key)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir not empty: %d entries", len(entries))
	}
}
