package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/m3rciful/bloodlife/internal/donor"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "donors.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs, path
}

func TestFileStoreFirstRunIsEmpty(t *testing.T) {
	fs, path := newTestFileStore(t)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file not created: %v", err)
	}
	snapshot, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot) != 0 {
		t.Fatalf("first run snapshot not empty: %v", snapshot)
	}
	if n, err := fs.Count(context.Background()); err != nil || n != 0 {
		t.Fatalf("Count = %d, %v; want 0, nil", n, err)
	}
}

func TestFileStoreUpsertPersistsAcrossReopen(t *testing.T) {
	fs, path := newTestFileStore(t)
	ctx := context.Background()

	p1 := donor.Profile{ID: "1", Name: "Asha", BloodGroup: donor.APositive, Available: true}
	p2 := donor.Profile{ID: "2", Name: "Ravi", BloodGroup: donor.ONegative}
	if err := fs.Upsert(ctx, p1); err != nil {
		t.Fatalf("Upsert p1: %v", err)
	}
	if err := fs.Upsert(ctx, p2); err != nil {
		t.Fatalf("Upsert p2: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(ctx, "1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Name != "Asha" || got.BloodGroup != donor.APositive {
		t.Fatalf("profile mangled across reopen: %+v", got)
	}
	if n, _ := reopened.Count(ctx); n != 2 {
		t.Fatalf("Count after reopen = %d, want 2", n)
	}
}

func TestFileStoreUpsertReplaces(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()

	if err := fs.Upsert(ctx, donor.Profile{ID: "1", City: "Pune"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := fs.Upsert(ctx, donor.Profile{ID: "1", City: "Mumbai"}); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	got, err := fs.Get(ctx, "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.City != "Mumbai" {
		t.Fatalf("City = %q, want Mumbai", got.City)
	}
	if n, _ := fs.Count(ctx); n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	fs, _ := newTestFileStore(t)
	if _, err := fs.Get(context.Background(), "ghost"); !errors.Is(err, donor.ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestFileStoreFilterAvailable(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()

	_ = fs.Upsert(ctx, donor.Profile{ID: "1", Name: "Asha", Available: true})
	_ = fs.Upsert(ctx, donor.Profile{ID: "2", Name: "Ravi", Available: false})

	available, err := fs.FilterAvailable(ctx)
	if err != nil {
		t.Fatalf("FilterAvailable: %v", err)
	}
	if len(available) != 1 || available[0].ID != "1" {
		t.Fatalf("FilterAvailable = %+v, want only Asha", available)
	}
}

// Concurrent commits from different users must all survive the
// load-modify-save cycle.
func TestFileStoreConcurrentUpserts(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()

	const users = 20
	var wg sync.WaitGroup
	errCh := make(chan error, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			errCh <- fs.Upsert(ctx, donor.Profile{ID: id, Name: id})
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent Upsert: %v", err)
		}
	}

	if n, err := fs.Count(ctx); err != nil || n != users {
		t.Fatalf("Count = %d, %v; want %d", n, err, users)
	}
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()

	_ = fs.Upsert(ctx, donor.Profile{ID: "1"})
	_ = fs.Upsert(ctx, donor.Profile{ID: "2"})

	if err := fs.Save(ctx, map[string]donor.Profile{"9": {ID: "9"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snapshot, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("Save should replace the snapshot, got %v", snapshot)
	}
	if _, ok := snapshot["9"]; !ok {
		t.Fatalf("replacement snapshot missing, got %v", snapshot)
	}
}
