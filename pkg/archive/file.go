package archive

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/matzehuels/bubblemap/pkg/config"
)

// FileStore is a file-based run store for CLI use.
// Runs are stored as JSON files named after their id.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based run store.
// If baseDir is empty, defaults to the "runs" directory next to the
// config file.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		baseDir = filepath.Join(config.Dir(), "runs")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) runPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, run *Run) error {
	if err := ValidateRunID(run.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := os.WriteFile(s.runPath(run.ID), data, 0o644); err != nil {
		return fmt.Errorf("write run file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Run, error) {
	if err := ValidateRunID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := s.read(s.runPath(id))
	if os.IsNotExist(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	if run.IsExpired() {
		return nil, notFound(id)
	}
	return run, nil
}

func (s *FileStore) List(ctx context.Context, opts ListOptions) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs, err := s.scan(func(r *Run) bool {
		return !r.IsExpired() && (opts.Scene == "" || r.Scene == opts.Scene)
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(runs, func(a, b *Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if n := opts.limit(); len(runs) > n {
		runs = runs[:n]
	}
	for i, r := range runs {
		runs[i] = r.Summary()
	}
	return runs, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ValidateRunID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.runPath(id)); err != nil {
		if os.IsNotExist(err) {
			return notFound(id)
		}
		return fmt.Errorf("remove run file: %w", err)
	}
	return nil
}

func (s *FileStore) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired, err := s.scan((*Run).IsExpired)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range expired {
		if err := os.Remove(s.runPath(r.ID)); err == nil {
			n++
		}
	}
	return n, nil
}

func (s *FileStore) Close(ctx context.Context) error { return nil }

// Path returns the base directory for run files.
func (s *FileStore) Path() string {
	return s.baseDir
}

func (s *FileStore) read(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	return &run, nil
}

// scan reads every run file and keeps those matching keep. Unreadable
// files are skipped.
func (s *FileStore) scan(keep func(*Run) bool) ([]*Run, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read run dir: %w", err)
	}
	var runs []*Run
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		run, err := s.read(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		if keep(run) {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

var _ Store = (*FileStore)(nil)
