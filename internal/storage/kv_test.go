package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestKVGetSet(t *testing.T) {
	for name, kv := range kvBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v err %v, want absent", ok, err)
			}

			if err := kv.Set(ctx, "k", []byte("one")); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := kv.Set(ctx, "k", []byte("two")); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			got, ok, err := kv.Get(ctx, "k")
			if err != nil || !ok || string(got) != "two" {
				t.Fatalf("Get(k) = %q %v %v, want two", got, ok, err)
			}

			if err := kv.Set(ctx, "", []byte("x")); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey for empty key, got %v", err)
			}
		})
	}
}

func TestMemoryKVCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	value := []byte("abc")
	kv.Set(ctx, "k", value)
	value[0] = 'z'

	got, _, _ := kv.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
}

func TestFileKVRejectsPathKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	for _, key := range []string{"../escape", "a/b", ".."} {
		if err := kv.Set(context.Background(), key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Set(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestFileKVLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	if err := kv.Set(context.Background(), "ledger", []byte("{}")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "ledger.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
	if _, err := os.Stat(filepath.Join(dir, "ledger.json")); err != nil {
		t.Fatalf("expected ledger.json: %v", err)
	}
}
