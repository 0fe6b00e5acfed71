package kvstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/unkn0wn-root/reqbox/internal/errdef"
)

const (
	filePermission = 0o644
	dirPermission  = 0o755
)

// FileStore keeps each key in its own JSON file under dir.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errdef.New(errdef.CodeConfig, "file store requires a directory")
	}
	return &FileStore{dir: filepath.Clean(dir)}, nil
}

func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileStore) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, errdef.Wrap(errdef.CodeFilesystem, err, "read %s", key)
	}
	return data, true, nil
}

func (f *FileStore) Put(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, dirPermission); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create store dir")
	}
	if err := writeFileAtomic(f.path(key), value, filePermission); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace %s", key)
	}
	return nil
}

func (f *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errdef.Wrap(errdef.CodeFilesystem, err, "delete %s", key)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

// write to temp file then rename so readers never see a partial record.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".reqbox-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
