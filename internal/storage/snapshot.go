// internal/storage/snapshot.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/astralforge/stellar-odyssey/internal/logger"
)

// SnapshotStore persists whole-state snapshots to an external store.
// Each snapshot is independently consistent; there is no transactional
// guarantee across names. Save overwrites the whole snapshot and is
// idempotent; Load reports found=false when nothing was saved yet so the
// caller can fall back to defaults.
type SnapshotStore interface {
	Save(ctx context.Context, name string, v interface{}) error
	Load(ctx context.Context, name string, v interface{}) (found bool, err error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// FileSnapshotStore keeps snapshots as JSON files under a base directory.
type FileSnapshotStore struct {
	baseDir string

	// Per-snapshot locks so a save never observes a half-written file.
	fileLocks sync.Map // name -> *sync.RWMutex
}

// NewFileSnapshotStore creates a file-backed snapshot store.
func NewFileSnapshotStore(baseDir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileSnapshotStore{baseDir: baseDir}, nil
}

func (fs *FileSnapshotStore) lockFor(name string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(name, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func (fs *FileSnapshotStore) path(name string) string {
	return filepath.Join(fs.baseDir, name+".json")
}

// Save writes the snapshot atomically via a temp file and rename.
func (fs *FileSnapshotStore) Save(ctx context.Context, name string, v interface{}) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot %s: %w", name, err)
	}

	lock := fs.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	fullPath := fs.path(name)
	tempPath := fullPath + ".tmp"

	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot temp file: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Get().Warn("failed to clean up snapshot temp file", map[string]interface{}{
				"path":  tempPath,
				"error": removeErr.Error(),
			})
		}
		return fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}

	return nil
}

// Load reads a snapshot into v. A missing file is not an error.
func (fs *FileSnapshotStore) Load(ctx context.Context, name string, v interface{}) (bool, error) {
	lock := fs.lockFor(name)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fs.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}

	if err := json.Unmarshal(content, v); err != nil {
		return false, fmt.Errorf("failed to parse snapshot %s: %w", name, err)
	}
	return true, nil
}

// Delete removes a snapshot. Deleting a missing snapshot is a no-op.
func (fs *FileSnapshotStore) Delete(ctx context.Context, name string) error {
	lock := fs.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(fs.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (fs *FileSnapshotStore) Close() error {
	return nil
}

var _ SnapshotStore = (*FileSnapshotStore)(nil)
