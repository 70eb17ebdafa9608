package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the registry in a JSON file. Every change rewrites the file
// through a temp file and rename.
type FileStore struct {
	mu       sync.RWMutex
	sites    []Site
	filename string
}

// NewFileStore loads filename, seeding it with DefaultSites when it does not
// exist yet.
func NewFileStore(filename string) (*FileStore, error) {
	fs := &FileStore{filename: filename}

	if err := fs.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		fs.sites = DefaultSites()
		if err := fs.save(); err != nil {
			return nil, err
		}
	}

	return fs, nil
}

func (fs *FileStore) List(ctx context.Context) ([]Site, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]Site, len(fs.sites))
	copy(out, fs.sites)
	return out, nil
}

func (fs *FileStore) Get(ctx context.Context, id string) (Site, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	for _, s := range fs.sites {
		if s.ID == id {
			return s, nil
		}
	}
	return Site{}, ErrNotFound
}

func (fs *FileStore) Add(ctx context.Context, site Site) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, s := range fs.sites {
		if s.ID == site.ID || s.URL == site.URL {
			return ErrDuplicate
		}
	}

	fs.sites = append(fs.sites, site)
	if err := fs.save(); err != nil {
		fs.sites = fs.sites[:len(fs.sites)-1]
		return err
	}
	return nil
}

func (fs *FileStore) Delete(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i, s := range fs.sites {
		if s.ID != id {
			continue
		}
		prev := fs.sites
		fs.sites = append(append([]Site{}, fs.sites[:i]...), fs.sites[i+1:]...)
		if err := fs.save(); err != nil {
			fs.sites = prev
			return err
		}
		return nil
	}
	return ErrNotFound
}

func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.sites, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sites: %w", err)
	}

	if dir := filepath.Dir(fs.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write to temp file first for atomicity
	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sites: %w", err)
	}

	return os.Rename(tmpFile, fs.filename)
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}

	var sites []Site
	if err := json.Unmarshal(data, &sites); err != nil {
		return fmt.Errorf("failed to parse %s: %w", fs.filename, err)
	}
	fs.sites = sites
	return nil
}
