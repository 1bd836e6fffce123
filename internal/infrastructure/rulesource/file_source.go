// Package rulesource loads rule-set drafts from the filesystem and keeps the
// rule repository current as the file changes.  It is the operational path
// for publishing court rules without a redeploy: edit the document, the
// watcher republishes it as the next version.
package rulesource

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
)

// fileDraft is the on-disk shape: a publishable draft plus an explicit
// schema version, so stale documents from an incompatible build are rejected
// instead of half-parsed.
type fileDraft struct {
	SchemaVersion int `json:"schema_version"`
	rules.Draft
}

// debounceWindow absorbs the write/rename event bursts editors and
// configuration-management tools produce for a single logical save.
const debounceWindow = 250 * time.Millisecond

// FileSource publishes the rule document at a fixed path into a Repository.
// Reload is content-addressed: republishing the same bytes is a no-op, so a
// touch or an atomic-rename save never burns a version number.
type FileSource struct {
	path string
	repo rules.Repository
	log  logging.Logger

	mu       sync.Mutex
	lastHash [sha256.Size]byte
	loaded   bool
}

// NewFileSource constructs a source for the document at path.
func NewFileSource(path string, repo rules.Repository, log logging.Logger) *FileSource {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FileSource{
		path: path,
		repo: repo,
		log:  log.Named("rulesource"),
	}
}

// Load reads, validates and publishes the document.  On any failure the
// repository keeps serving its last good version.
func (s *FileSource) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to read rule document")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := sha256.Sum256(data)
	if s.loaded && hash == s.lastHash {
		s.log.Debug("rule document unchanged, skipping republish",
			logging.String("path", s.path))
		return nil
	}

	var doc fileDraft
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode rule document")
	}
	if doc.SchemaVersion != rules.CurrentSchemaVersion {
		return errors.Newf(errors.ErrCodeUnknownSchemaVersion,
			"rule document schema %d is not supported (want %d)",
			doc.SchemaVersion, rules.CurrentSchemaVersion)
	}

	rs, err := s.repo.Publish(doc.Draft)
	if err != nil {
		return err
	}

	s.lastHash = hash
	s.loaded = true
	s.log.Info("published rule document",
		logging.String("path", s.path),
		logging.Int("version", rs.Version),
		logging.Int("process_types", len(rs.ProcessTypes)))
	return nil
}

// Watch republishes the document whenever it changes on disk, until ctx is
// cancelled.  The parent directory is watched rather than the file itself:
// atomic saves replace the inode, which would silently detach a file-level
// watch.  A failed reload is logged and the last good version stays active.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create rule document watcher")
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to watch rule document directory")
	}
	s.log.Info("watching rule document", logging.String("path", s.path))

	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				pending = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}

		case <-pending:
			timer = nil
			pending = nil
			if err := s.Load(); err != nil {
				s.log.Error("rule document reload failed, keeping previous version",
					logging.String("path", s.path),
					logging.Err(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("rule document watcher error", logging.Err(err))
		}
	}
}
