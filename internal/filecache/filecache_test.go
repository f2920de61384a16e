package filecache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
)

func TestStore(t *testing.T) {
	for _, tc := range []struct {
		name string
		path func(t *testing.T) string
	}{
		{"bolt", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nested", "cache.db") }},
		{"memory", func(t *testing.T) string { return "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(tc.path(t))
			if err != nil {
				t.Fatalf("failed to open store: %v", err)
			}
			defer store.Close()

			t.Run("Miss", func(t *testing.T) {
				ok, err := store.Exists(models.PosterKind, 1)
				if err != nil || ok {
					t.Errorf("expected miss, got %v, %v", ok, err)
				}
				if _, err := store.Get(models.PosterKind, 1); !errors.Is(err, shared.ErrCacheMiss) {
					t.Errorf("expected ErrCacheMiss, got %v", err)
				}
			})

			t.Run("Put Get Delete", func(t *testing.T) {
				if err := store.Put(models.PosterKind, 2, []byte("jpeg")); err != nil {
					t.Fatalf("put failed: %v", err)
				}

				ok, err := store.Exists(models.PosterKind, 2)
				if err != nil || !ok {
					t.Fatalf("expected hit, got %v, %v", ok, err)
				}

				data, err := store.Get(models.PosterKind, 2)
				if err != nil || string(data) != "jpeg" {
					t.Errorf("expected jpeg, got %q, %v", data, err)
				}

				if n, _ := store.Count(models.PosterKind); n != 1 {
					t.Errorf("expected 1 entry, got %d", n)
				}

				if err := store.Delete(models.PosterKind, 2); err != nil {
					t.Fatalf("delete failed: %v", err)
				}
				if ok, _ := store.Exists(models.PosterKind, 2); ok {
					t.Error("expected entry to be gone")
				}
			})

			t.Run("Delete missing entry", func(t *testing.T) {
				if err := store.Delete(models.PosterKind, 404); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			})

			t.Run("Kinds are isolated", func(t *testing.T) {
				other := models.FileKind("Other")
				if err := store.Put(other, 3, []byte("x")); err != nil {
					t.Fatalf("put failed: %v", err)
				}
				if ok, _ := store.Exists(models.PosterKind, 3); ok {
					t.Error("expected poster bucket to be unaffected")
				}
			})
		})
	}
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.Put(models.PosterKind, 7, []byte("poster")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	if ok, _ := store.Exists(models.PosterKind, 7); !ok {
		t.Error("expected entry to survive reopen")
	}
}

func TestStoreClosed(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	store.Close()

	if _, err := store.Exists(models.PosterKind, 1); err == nil {
		t.Error("expected error from closed store")
	}
}
