package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	errpkg "github.com/veranemoloko/video-downloader/internal/errors"
)

// FileStorage provides methods to manage files in a specific directory.
type FileStorage struct {
	dir string
}

// FileInfo describes a stored file.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// NewFileStorage creates a new FileStorage instance with the given directory.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Dir returns the storage directory.
func (s *FileStorage) Dir() string {
	return s.dir
}

// Path returns the absolute location of filename inside the storage directory.
// Only the base name of filename is used.
func (s *FileStorage) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// WriteFile writes the given data to a file with the specified filename.
func (s *FileStorage) WriteFile(filename string, data []byte) error {
	path := s.Path(filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &errpkg.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Open opens a stored file for reading.
func (s *FileStorage) Open(filename string) (*os.File, error) {
	return os.Open(s.Path(filename))
}

// FileExists checks whether a regular file exists in the storage directory.
func (s *FileStorage) FileExists(filename string) bool {
	info, err := os.Stat(s.Path(filename))
	return err == nil && info.Mode().IsRegular()
}

// Stat returns size and modification time of a stored file.
func (s *FileStorage) Stat(filename string) (FileInfo, error) {
	path := s.Path(filename)
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, &errpkg.StorageError{Op: "stat", Path: path, Err: err}
	}
	return FileInfo{Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete removes a stored file. A file that is already gone counts as deleted;
// the returned bool reports whether this call removed it.
func (s *FileStorage) Delete(filename string) (bool, error) {
	path := s.Path(filename)
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &errpkg.StorageError{Op: "delete", Path: path, Err: err}
}

// List returns the regular files in the storage directory. Entries that vanish
// while listing are skipped.
func (s *FileStorage) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &errpkg.StorageError{Op: "list", Path: s.dir, Err: err}
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, &errpkg.StorageError{Op: "stat", Path: filepath.Join(s.dir, entry.Name()), Err: err}
		}
		files = append(files, FileInfo{Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

// EnsureDir creates the storage directory if it does not exist.
func (s *FileStorage) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir %s: %w", s.dir, err)
	}
	return nil
}

// Accessible reports whether the storage directory exists and is a directory.
func (s *FileStorage) Accessible() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}
