package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tradebill/internal/kvstore"
)

func TestRoundTrip(t *testing.T) {
	kv, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := kv.Get(ctx, "brands"); err != kvstore.ErrNotFound {
		t.Fatalf("expected ErrNotFound for absent key, got %v", err)
	}

	if err := kv.Set(ctx, "brands", `[{"id":1}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := kv.Get(ctx, "brands")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != `[{"id":1}]` {
		t.Fatalf("unexpected value %q", got)
	}

	if err := kv.Remove(ctx, "brands"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := kv.Get(ctx, "brands"); err != kvstore.ErrNotFound {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestSetOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	kv, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := kv.Set(ctx, "bills", "old"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "bills", "new"); err != nil {
		t.Fatalf("set: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "bills.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "new" {
		t.Fatalf("expected new value on disk, got %q", data)
	}
}

func TestRejectsUnsafeKeys(t *testing.T) {
	kv, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`, "dotted.name"} {
		if err := kv.Set(ctx, key, "x"); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for blank data dir")
	}
}
