// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package store

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// FileStore is a Store backed by a flat key=value text file, one pair per
// line. The file is created on first Flush if it does not exist.
type FileStore struct {
	path string

	mu   sync.Mutex
	file *ini.File
}

var _ Store = (*FileStore)(nil)

// Open loads the store file at path. A missing file yields an empty store.
func Open(path string) (*FileStore, error) {
	file, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load store file %s: %w", path, err)
	}
	return &FileStore{path: path, file: file}, nil
}

func (s *FileStore) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.file.Section("").Key(key).String())
}

func (s *FileStore) Set(key, value string) {
	if value == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.Section("").Key(key).SetValue(value)
}

func (s *FileStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.Section("").DeleteKey(key)
}

func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.SaveTo(s.path); err != nil {
		return fmt.Errorf("failed to save store file %s: %w", s.path, err)
	}
	return nil
}
