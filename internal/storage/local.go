package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps corpus uploads on the local filesystem. It is the
// default backend for single-node deployments and development.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (l *LocalStorage) Put(ctx context.Context, name string, key string, file io.ReadSeeker) (string, error) {
	ext := filepath.Ext(name)
	storedKey := key + ext

	out, err := os.Create(filepath.Join(l.dir, storedKey))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return storedKey, nil
}

func (l *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}
	return data, nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload file: %w", err)
	}
	return nil
}

// resolve rejects keys that escape the upload directory.
func (l *LocalStorage) resolve(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if strings.Contains(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return filepath.Join(l.dir, cleaned), nil
}
