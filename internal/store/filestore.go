package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m3rciful/bloodlife/core/logger"
	"github.com/m3rciful/bloodlife/internal/donor"
)

// FileStore keeps the whole donor table as one JSON object keyed by user id.
// A single mutex serializes every load-modify-save sequence, so concurrent
// commits from different users cannot drop each other's writes.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens a snapshot store at path, creating an empty snapshot
// on first run.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%w: create dir: %v", ErrUnavailable, err)
			}
		}
		if err := fs.writeSnapshot(map[string]donor.Profile{}); err != nil {
			return nil, err
		}
		logger.Info(context.Background(), "store", "snapshot.init",
			slog.String("path", path),
		)
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrUnavailable, path, err)
	}
	return fs, nil
}

// Load implements Store.
func (fs *FileStore) Load(ctx context.Context) (map[string]donor.Profile, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.readSnapshot(ctx)
}

// Save implements Store.
func (fs *FileStore) Save(ctx context.Context, snapshot map[string]donor.Profile) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.saveLocked(ctx, snapshot)
}

// Get implements Store.
func (fs *FileStore) Get(ctx context.Context, id string) (donor.Profile, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	snapshot, err := fs.readSnapshot(ctx)
	if err != nil {
		return donor.Profile{}, err
	}
	p, ok := snapshot[id]
	if !ok {
		return donor.Profile{}, donor.ErrNotRegistered
	}
	return p, nil
}

// Upsert implements Store. The read-modify-write runs under the store mutex.
func (fs *FileStore) Upsert(ctx context.Context, p donor.Profile) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	snapshot, err := fs.readSnapshot(ctx)
	if err != nil {
		return err
	}
	snapshot[p.ID] = p
	return fs.saveLocked(ctx, snapshot)
}

// FilterAvailable implements Store.
func (fs *FileStore) FilterAvailable(ctx context.Context) ([]donor.Profile, error) {
	snapshot, err := fs.Load(ctx)
	if err != nil {
		return nil, err
	}
	var out []donor.Profile
	for _, p := range snapshot {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

// Count implements Store.
func (fs *FileStore) Count(ctx context.Context) (int, error) {
	snapshot, err := fs.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(snapshot), nil
}

func (fs *FileStore) readSnapshot(ctx context.Context) (map[string]donor.Profile, error) {
	start := time.Now()
	data, err := os.ReadFile(fs.path)
	if err != nil {
		logger.Error(ctx, "store", "snapshot.read",
			slog.String("status", "fail"),
			slog.String("path", fs.path),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, fs.path, err)
	}
	snapshot := make(map[string]donor.Profile)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, fs.path, err)
		}
	}
	logger.Debug(ctx, "store", "snapshot.read",
		slog.String("status", "ok"),
		slog.Int("count", len(snapshot)),
		slog.Duration("duration", logger.Took(start)),
	)
	return snapshot, nil
}

func (fs *FileStore) saveLocked(ctx context.Context, snapshot map[string]donor.Profile) error {
	start := time.Now()
	if err := fs.writeSnapshot(snapshot); err != nil {
		logger.Error(ctx, "store", "snapshot.write",
			slog.String("status", "fail"),
			slog.String("path", fs.path),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Debug(ctx, "store", "snapshot.write",
		slog.String("status", "ok"),
		slog.Int("count", len(snapshot)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// writeSnapshot writes to a temp file in the snapshot directory and renames
// it over the live file, so a failed write never truncates the prior state.
func (fs *FileStore) writeSnapshot(snapshot map[string]donor.Profile) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrUnavailable, tmpName, err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", ErrUnavailable, tmpName, err)
	}
	return nil
}
