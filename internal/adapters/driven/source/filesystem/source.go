// Package filesystem serves documents from a local directory and
// watches it for changes.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/quire/internal/core/domain"
	"github.com/custodia-labs/quire/internal/core/ports/driven"
	"github.com/custodia-labs/quire/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// supportedExtensions are the file types served as documents.
var supportedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// Source serves every supported file under a directory as a document.
// Document IDs are derived from the file path, so the same file always
// maps to the same document across runs.
type Source struct {
	dir string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a source over dir. The directory must exist.
func New(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("document directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return &Source{dir: dir}, nil
}

// DocumentID derives the stable document ID for a file path.
func DocumentID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()
}

// Documents walks the directory and returns every supported file,
// sorted by path for a stable listing.
func (s *Source) Documents(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, domain.Document{
			ID:   DocumentID(path),
			Name: d.Name(),
			Data: data,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Watch invokes onChange with the refreshed document set whenever a
// supported file is created, written, renamed or removed, until ctx is
// cancelled.
func (s *Source) Watch(ctx context.Context, onChange func([]domain.Document)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !supportedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			logger.Debug("document change: %s %s", event.Op, event.Name)

			docs, err := s.Documents(ctx)
			if err != nil {
				logger.Warn("refreshing documents: %v", err)
				continue
			}
			onChange(docs)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

// Close stops the watcher if one is running.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
