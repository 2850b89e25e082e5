package services

import (
	"os"
	"path/filepath"
)

// StorageService stores generated artifacts as flat files under a fixed root
// directory. Writes go through a temp file and rename so a reader never
// observes a partial artifact.
type StorageService struct {
	root string
}

func NewStorageService(root string) *StorageService {
	// ensure root exists
	_ = os.MkdirAll(root, 0o755)
	return &StorageService{root: root}
}

// Root returns the storage root directory.
func (s *StorageService) Root() string {
	return s.root
}

// Save writes data under filename and returns the path usable for later
// retrieval and removal.
func (s *StorageService) Save(data []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", err
	}

	absPath := filepath.Join(s.root, filename)
	tmp := absPath + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	return absPath, nil
}

// Remove deletes the artifact at path. Removing an already-absent file is a
// no-op success.
func (s *StorageService) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether an artifact is present at path.
func (s *StorageService) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Resolve maps a bare filename to a path inside the storage root, rejecting
// anything that escapes it.
func (s *StorageService) Resolve(filename string) (string, bool) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", false
	}
	return filepath.Join(s.root, name), true
}
