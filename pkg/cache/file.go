package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore 每个池子一个 YAML 文件: <dir>/<pool>.yaml
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(pool string) string {
	return filepath.Join(s.dir, pool+".yaml")
}

// Put 先写临时文件再 rename, 读者不会看到半个文件
func (s *FileStore) Put(_ context.Context, snap PoolSnapshot) error {
	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Pool, err)
	}
	tmp, err := os.CreateTemp(s.dir, snap.Pool+".*.tmp")
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", snap.Pool, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", snap.Pool, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", snap.Pool, err)
	}
	if err := os.Rename(tmp.Name(), s.path(snap.Pool)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", snap.Pool, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, pool string) (PoolSnapshot, error) {
	data, err := os.ReadFile(s.path(pool))
	if errors.Is(err, os.ErrNotExist) {
		return PoolSnapshot{}, fmt.Errorf("%w: %s", ErrNotFound, pool)
	}
	if err != nil {
		return PoolSnapshot{}, fmt.Errorf("read snapshot %s: %w", pool, err)
	}
	var snap PoolSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return PoolSnapshot{}, fmt.Errorf("decode snapshot %s: %w", pool, err)
	}
	return snap, nil
}

func (s *FileStore) Close() error {
	return nil
}
