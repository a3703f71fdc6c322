package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var _ Store = (*LocalStore)(nil)

// LocalStore writes images below baseDir and addresses them as
// urlPrefix + key.
type LocalStore struct {
	baseDir   string
	urlPrefix string
}

// NewLocalStore creates baseDir if needed. urlPrefix is normalized to start
// and end with a slash ("/media/").
func NewLocalStore(baseDir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, recipeDir), 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: creating %s: %w", baseDir, err)
	}
	return &LocalStore{
		baseDir:   baseDir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/") + "/",
	}, nil
}

// BaseDir is the directory the HTTP layer serves under URLPrefix.
func (s *LocalStore) BaseDir() string { return s.baseDir }

func (s *LocalStore) URLPrefix() string { return s.urlPrefix }

func (s *LocalStore) Put(_ context.Context, img *Image) (string, error) {
	key := objectKey(img)
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))

	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("imagestore: writing %s: %w", key, err)
	}
	return s.urlPrefix + key, nil
}

func (s *LocalStore) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.urlPrefix)
	if !ok || key == "" {
		return nil
	}
	// keys are always "<dir>/<name>"; anything climbing out of baseDir is not ours
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil
	}

	err := os.Remove(filepath.Join(s.baseDir, clean))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("imagestore: removing %s: %w", key, err)
	}
	return nil
}
