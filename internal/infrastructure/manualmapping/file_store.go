// Package manualmapping persists human-confirmed primary to secondary player
// links as a flat JSON object on disk.
package manualmapping

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
)

// FileStore keeps the overlay in memory and rewrites the whole file on every
// Add. It assumes a single writer process; the mutex only serializes writers
// inside this process.
type FileStore struct {
	path   string
	logger *logging.Logger

	mu      sync.Mutex
	entries map[string]string
}

// Open loads the overlay at path. A missing or malformed file yields an empty
// overlay; Open never fails.
func Open(path string, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.Default()
	}
	s := &FileStore{
		path:   strings.TrimSpace(path),
		logger: logger,
	}
	s.entries = s.read()
	return s
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns a copy of the current overlay.
func (s *FileStore) Load() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.entries))
	for key, value := range s.entries {
		out[key] = value
	}
	return out
}

// Add sets primaryID to secondaryID and rewrites the file. On a write failure
// the in-memory overlay keeps the entry and the error wraps
// usecase.ErrStorageUnavailable.
func (s *FileStore) Add(ctx context.Context, primaryID int64, secondaryID string) error {
	key := strconv.FormatInt(primaryID, 10)
	secondaryID = strings.TrimSpace(secondaryID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = secondaryID
	if err := s.write(); err != nil {
		s.logger.ErrorContext(ctx, "persist manual mappings failed",
			"path", s.path,
			"primary_id", key,
			"error", err,
		)
		return fmt.Errorf("%w: write manual mappings %s: %v", usecase.ErrStorageUnavailable, s.path, err)
	}

	s.logger.InfoContext(ctx, "manual mapping added",
		"primary_id", key,
		"secondary_id", secondaryID,
		"total", len(s.entries),
	)
	return nil
}

func (s *FileStore) read() map[string]string {
	entries := make(map[string]string)
	if s.path == "" {
		s.logger.Info("manual mappings path not configured, starting empty")
		return entries
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("manual mappings file not found, starting empty", "path", s.path)
		return entries
	}
	if err != nil {
		s.logger.Error("read manual mappings failed, starting empty", "path", s.path, "error", err)
		return entries
	}
	if strings.TrimSpace(string(raw)) == "" {
		return entries
	}

	var decoded map[string]any
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		s.logger.Error("decode manual mappings failed, starting empty", "path", s.path, "error", err)
		return entries
	}

	for key, value := range decoded {
		key = strings.TrimSpace(key)
		if key == "" || value == nil {
			continue
		}
		entries[key] = stringify(value)
	}

	s.logger.Info("manual mappings loaded", "path", s.path, "count", len(entries))
	return entries
}

// write replaces the file through a temp file and rename so readers never see
// a half-written snapshot.
func (s *FileStore) write() error {
	if s.path == "" {
		return fmt.Errorf("path not configured")
	}

	raw, err := sonic.ConfigStd.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}
