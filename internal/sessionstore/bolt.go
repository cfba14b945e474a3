package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"fjacquet/txsort/internal/fileutils"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	"github.com/boltdb/bolt"
)

var sessionsBucket = []byte("sessions")

// BoltStore keeps session documents in a single BoltDB file, keyed by user.
// Every Save runs in its own read-write transaction. The database file is
// locked for as long as the store is open, so only one process uses it.
type BoltStore struct {
	db     *bolt.DB
	logger logging.Logger
}

// OpenBoltStore opens (or creates) the database at path.
func OpenBoltStore(path string, logger logging.Logger) (*BoltStore, error) {
	if err := fileutils.EnsureDirectoryExists(filepath.Dir(path), models.PermissionDirectory); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, models.PermissionSessionFile, &bolt.Options{Timeout: time.Second})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("session database %s is in use: %w", path, ErrLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open session database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sessions bucket: %w", err)
	}
	return &BoltStore{db: db, logger: logger}, nil
}

// Close releases the database file lock.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

// Lock has nothing to do across processes: the open database already
// excludes them.
func (b *BoltStore) Lock(user string) (func(), error) {
	if _, err := Key(user); err != nil {
		return nil, err
	}
	return func() {}, nil
}

func (b *BoltStore) Load(ctx context.Context, user string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := Key(user)
	if err != nil {
		return nil, err
	}
	data, err := b.get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read session for %s: %w", user, err)
	}
	if data == nil {
		return nil, nil
	}
	s, err := Decode(user, data)
	if err != nil {
		b.logger.WithError(err).Warn("Stored session failed validation", logging.F(logging.FieldUser, user))
		return nil, err
	}
	return s, nil
}

func (b *BoltStore) Save(ctx context.Context, user string, s *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := Key(user)
	if err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save session for %s: %w", user, err)
	}
	b.logger.Debug("Session saved",
		logging.F(logging.FieldUser, user),
		logging.F(logging.FieldState, s.State),
		logging.F(logging.FieldRemaining, len(s.Remaining)))
	return nil
}

func (b *BoltStore) Delete(ctx context.Context, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := Key(user)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(key))
	})
}

func (b *BoltStore) Exists(_ context.Context, user string) bool {
	key, err := Key(user)
	if err != nil {
		return false
	}
	data, err := b.get(key)
	return err == nil && data != nil
}

func (b *BoltStore) get(key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(sessionsBucket).Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}
