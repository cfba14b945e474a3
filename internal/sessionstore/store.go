// Package sessionstore persists categorization sessions, one document per
// user. Two backends share the same JSON document: a directory of files and
// a BoltDB database.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fjacquet/txsort/internal/models"
)

// ErrLocked is returned by Lock when another process holds the session.
var ErrLocked = errors.New("session is locked by another process")

// Store is durable key-value persistence of sessions keyed by user.
type Store interface {
	// Lock reserves the session of user for one read-modify-write cycle,
	// across processes, until the returned function is called. A session
	// held elsewhere yields ErrLocked; Lock never waits.
	Lock(user string) (func(), error)
	// Load returns the session of user, or nil without error when there is
	// none. Unreadable or inconsistent data is a CorruptSessionError.
	Load(ctx context.Context, user string) (*models.Session, error)
	// Save replaces the persisted session atomically.
	Save(ctx context.Context, user string, s *models.Session) error
	// Delete removes the session. Deleting an absent session succeeds.
	Delete(ctx context.Context, user string) error
	Exists(ctx context.Context, user string) bool
}

// Key turns a user identity into a name usable as a file name or bucket key.
// Letters, digits, '-' and '_' are kept; every other byte is written as %XX.
func Key(user string) (string, error) {
	if user == "" {
		return "", fmt.Errorf("user identity must not be empty")
	}
	var b strings.Builder
	for i := 0; i < len(user); i++ {
		c := user[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String(), nil
}
