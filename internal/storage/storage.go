package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClipStore provides a file-based storage for synthesized audio clips.
type ClipStore struct {
	basePath string
}

// NewClipStore creates a new ClipStore and ensures the base directory exists.
func NewClipStore(basePath string) (*ClipStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &ClipStore{basePath: basePath}, nil
}

// sanitizeID keeps clip ids from escaping the base directory.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, id)
}

func (s *ClipStore) clipPath(id, format string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s.%s", sanitizeID(id), sanitizeID(format)))
}

// Save writes a clip under id with the given format as extension.
func (s *ClipStore) Save(id, format string, data []byte) error {
	if sanitizeID(id) == "" || sanitizeID(format) == "" {
		return fmt.Errorf("invalid clip id %q or format %q", id, format)
	}
	if err := os.WriteFile(s.clipPath(id, format), data, 0644); err != nil {
		return fmt.Errorf("failed to write clip file: %w", err)
	}
	return nil
}

// Path returns the file holding clip id and its format.
func (s *ClipStore) Path(id string) (string, string, error) {
	clean := sanitizeID(id)
	if clean == "" {
		return "", "", fmt.Errorf("invalid clip id %q", id)
	}
	matches, err := filepath.Glob(filepath.Join(s.basePath, clean+".*"))
	if err != nil {
		return "", "", fmt.Errorf("failed to glob clip files: %w", err)
	}
	if len(matches) == 0 {
		return "", "", fmt.Errorf("clip %s: %w", clean, os.ErrNotExist)
	}
	return matches[0], strings.TrimPrefix(filepath.Ext(matches[0]), "."), nil
}

// Load reads clip id.
func (s *ClipStore) Load(id string) ([]byte, string, error) {
	path, format, err := s.Path(id)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read clip file: %w", err)
	}
	return data, format, nil
}

// Exists checks if a clip file exists.
func (s *ClipStore) Exists(id string) bool {
	_, _, err := s.Path(id)
	return err == nil
}

// RemoveStale deletes clips last modified before cutoff and reports how many
// were removed.
func (s *ClipStore) RemoveStale(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list clips: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.basePath, entry.Name())
			if err := os.Remove(path); err != nil {
				return removed, fmt.Errorf("failed to remove stale file %s: %w", path, err)
			}
			removed++
		}
	}
	return removed, nil
}
