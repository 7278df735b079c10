package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"followscan/pkg/logger"
)

// NewFileStore stores the aggregate as JSON at path
func NewFileStore(path string, log logger.Logger) *AggregateStore {
	return newAggregateStore(&fileBlob{path: path}, log)
}

// NewMemoryStore keeps the aggregate in process memory
func NewMemoryStore(log logger.Logger) *AggregateStore {
	return newAggregateStore(&memoryBlob{}, log)
}

type fileBlob struct {
	path string
}

func (f *fileBlob) load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// store writes to a temporary file and renames it over the target
func (f *fileBlob) store(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tempPath := f.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync data file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close data file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

func (f *fileBlob) remove(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete data file: %w", err)
	}
	return nil
}

func (f *fileBlob) close() error { return nil }

type memoryBlob struct {
	mu   sync.RWMutex
	data []byte
}

func (m *memoryBlob) load(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data, nil
}

func (m *memoryBlob) store(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memoryBlob) remove(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

func (m *memoryBlob) close() error { return nil }
