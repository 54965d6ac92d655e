// Package sqlitestore implements auth.Adapter against a SQLite users
// table, for deployments that prefer a shared credential database over
// one flat file per user.
package sqlitestore

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/teavpn2/server/internal/auth"
	"github.com/teavpn2/server/internal/wire"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	pass_hash TEXT NOT NULL,
	dev TEXT NOT NULL,
	ipv4 TEXT NOT NULL,
	netmask TEXT NOT NULL,
	mtu INTEGER NOT NULL
);`

// Store is a sqlx-backed handle to the teavpn2.db users table.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the users table exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: connect: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Authenticate implements auth.Adapter.
func (s *Store) Authenticate(username, password string) (wire.IfaceConfigPayload, bool) {
	var acc auth.Account
	err := s.db.Get(&acc, `SELECT username, pass_hash AS passhash, dev, ipv4, netmask, mtu FROM users WHERE username = ?`, username)
	if err != nil {
		return wire.IfaceConfigPayload{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PassHash), []byte(password)) != nil {
		return wire.IfaceConfigPayload{}, false
	}
	return acc.Iface(), true
}

// Upsert inserts or replaces one account, storing a bcrypt hash of
// password.
func (s *Store) Upsert(username, password, dev, ipv4, netmask string, mtu uint16) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO users (username, pass_hash, dev, ipv4, netmask, mtu) VALUES (?, ?, ?, ?, ?, ?)`,
		username, string(hash), dev, ipv4, netmask, mtu)
	return err
}

func (s *Store) Close() error { return s.db.Close() }
