package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/txsort/internal/fileutils"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	"github.com/gofrs/flock"
)

// FileStore keeps one JSON file per user in a directory.
type FileStore struct {
	dir    string
	logger logging.Logger
}

// NewFileStore creates the session directory if needed.
func NewFileStore(dir string, logger logging.Logger) (*FileStore, error) {
	if err := fileutils.EnsureDirectoryExists(dir, models.PermissionDirectory); err != nil {
		return nil, fmt.Errorf("failed to prepare session directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Path returns the file holding the session of user.
func (f *FileStore) Path(user string) (string, error) {
	key, err := Key(user)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.dir, key+".json"), nil
}

// Lock takes an advisory lock on <key>.lock next to the session file. The
// lock file is left in place.
func (f *FileStore) Lock(user string) (func(), error) {
	key, err := Key(user)
	if err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(f.dir, key+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock session of %s: %w", user, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			f.logger.WithError(err).Warn("Failed to release session lock",
				logging.F(logging.FieldUser, user))
		}
	}, nil
}

func (f *FileStore) Load(ctx context.Context, user string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.Path(user)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file %s: %w", path, err)
	}
	if err := fileutils.CheckPrivate(path); err != nil {
		f.logger.WithError(err).Warn("Session file permissions are too open",
			logging.F(logging.FieldUser, user))
	}
	s, err := Decode(user, data)
	if err != nil {
		f.logger.WithError(err).Warn("Session file failed validation",
			logging.F(logging.FieldUser, user),
			logging.F(logging.FieldFile, path))
		return nil, err
	}
	return s, nil
}

func (f *FileStore) Save(ctx context.Context, user string, s *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.Path(user)
	if err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := fileutils.WriteFileAtomic(path, data, models.PermissionSessionFile); err != nil {
		return fmt.Errorf("failed to save session for %s: %w", user, err)
	}
	f.logger.Debug("Session saved",
		logging.F(logging.FieldUser, user),
		logging.F(logging.FieldState, s.State),
		logging.F(logging.FieldRemaining, len(s.Remaining)))
	return nil
}

func (f *FileStore) Delete(ctx context.Context, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.Path(user)
	if err != nil {
		return err
	}
	return fileutils.RemoveIfExists(path)
}

func (f *FileStore) Exists(_ context.Context, user string) bool {
	path, err := f.Path(user)
	if err != nil {
		return false
	}
	return fileutils.FileExists(path)
}
