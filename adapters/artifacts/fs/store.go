// Package fs stores training artifacts as files in one directory and
// publishes a new run by swapping a fully written staging directory into
// place.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"cropyield/adapters/artifacts"
	"cropyield/ports"
)

// Store is a directory-backed ports.ArtifactStore.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a store rooted at dir. The directory is created on first Save.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// Describe names the backend for logs.
func (s *Store) Describe() string {
	return "fs:" + s.dir
}

func (s *Store) backupDir() string {
	return s.dir + ".previous"
}

// Save writes every artifact into a staging directory, then swaps it in.
// A failure at any point leaves the previously published set in place.
func (s *Store) Save(ctx context.Context, bundle *ports.ArtifactBundle) error {
	blobs, err := artifacts.EncodeBundle(bundle)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent := filepath.Dir(s.dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact parent directory: %w", err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(s.dir)+".staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0o755); err != nil {
		return fmt.Errorf("failed to set staging permissions: %w", err)
	}

	for _, name := range ports.ArtifactNames {
		if err := writeFileSync(filepath.Join(staging, artifacts.FileName(name)), blobs[name]); err != nil {
			return err
		}
	}
	if err := syncDir(staging); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.swap(staging)
}

// swap publishes staging as the live directory.
func (s *Store) swap(staging string) error {
	backup := s.backupDir()
	if err := os.RemoveAll(backup); err != nil {
		return fmt.Errorf("failed to clear stale backup: %w", err)
	}

	hadLive := true
	if err := os.Rename(s.dir, backup); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to move previous artifacts aside: %w", err)
		}
		hadLive = false
	}

	if err := os.Rename(staging, s.dir); err != nil {
		if hadLive {
			if rerr := os.Rename(backup, s.dir); rerr != nil {
				log.Printf("[ArtifactStore] failed to restore previous artifacts from %s: %v", backup, rerr)
			}
		}
		return fmt.Errorf("failed to publish artifacts: %w", err)
	}

	if err := syncDir(filepath.Dir(s.dir)); err != nil {
		log.Printf("[ArtifactStore] parent directory sync failed: %v", err)
	}
	if hadLive {
		if err := os.RemoveAll(backup); err != nil {
			log.Printf("[ArtifactStore] failed to remove backup %s: %v", backup, err)
		}
	}
	return nil
}

// Load reads the live set. If a crash interrupted a swap after the live
// directory was moved aside, the backup is read instead.
func (s *Store) Load(ctx context.Context) (*ports.ArtifactBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.dir
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if _, berr := os.Stat(s.backupDir()); berr == nil {
			log.Printf("[ArtifactStore] live directory missing, reading backup %s", s.backupDir())
			dir = s.backupDir()
		}
	}

	blobs := make(map[string][]byte, len(ports.ArtifactNames))
	for _, name := range ports.ArtifactNames {
		data, err := readFile(filepath.Join(dir, artifacts.FileName(name)))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		blobs[name] = data
	}
	return artifacts.DecodeBundle(blobs)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", dir, err)
	}
	return nil
}
