package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	gopath "path"
	"path/filepath"

	"go.uber.org/zap"
)

// Uploader is the object-store surface the file store offloads to.
// Satisfied by *S3Client.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
}

// FileStore persists rendered documents on local disk, which remains the
// source of truth for serving downloads. When an uploader is configured a
// copy is offloaded to the object store; offload failures are logged and
// never fail the save.
type FileStore struct {
	dir      string
	uploader Uploader
	bucket   string
	prefix   string
	logger   *zap.Logger
}

func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logger}
}

// WithOffload enables best-effort replication to the given bucket. Keys are
// namespaced under prefix when one is set.
func (f *FileStore) WithOffload(uploader Uploader, bucket, prefix string) *FileStore {
	f.uploader = uploader
	f.bucket = bucket
	f.prefix = prefix
	return f
}

// Save writes data under the store directory and returns the stored path.
func (f *FileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	if f.uploader != nil {
		key := f.objectKey(name)
		if err := f.uploader.Upload(ctx, f.bucket, key, bytes.NewReader(data)); err != nil {
			f.logger.Warn("object store offload failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}
	return path, nil
}

func (f *FileStore) objectKey(name string) string {
	if f.prefix == "" {
		return name
	}
	return gopath.Join(f.prefix, name)
}

// Remove deletes a stored file. Missing files are not an error.
func (f *FileStore) Remove(name string) error {
	err := os.Remove(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Dir returns the store's root directory.
func (f *FileStore) Dir() string {
	return f.dir
}
