// Package filestore implements auth.Adapter by reading one credential
// record per user from flat files under a data directory, hashed with
// bcrypt rather than compared in cleartext.
package filestore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/teavpn2/server/internal/auth"
	"github.com/teavpn2/server/internal/wire"
)

// Store loads every account in dir/users/ once at construction and
// serves lookups from an in-memory map guarded by a mutex; the user
// count for a VPN concentrator is small enough that reloading on SIGHUP
// (see lifecycle.Controller) is cheaper than a live filesystem watch.
type Store struct {
	mu       sync.RWMutex
	dir      string
	accounts map[string]auth.Account
}

// Open reads every file under dataDir/users/ as a credential record.
// Each file's base name is the username; its contents are five
// newline-separated fields: bcrypt_hash, dev, ipv4, netmask, mtu.
func Open(dataDir string) (*Store, error) {
	s := &Store{dir: filepath.Join(dataDir, "users"), accounts: make(map[string]auth.Account)}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("filestore: read users dir: %w", err)
	}
	accounts := make(map[string]auth.Account, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		acc, err := readAccount(filepath.Join(s.dir, e.Name()), e.Name())
		if err != nil {
			return fmt.Errorf("filestore: %s: %w", e.Name(), err)
		}
		accounts[e.Name()] = acc
	}
	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	return nil
}

// Reload re-reads the users directory; wired to SIGHUP by the lifecycle
// controller so credentials can be rotated without a restart.
func (s *Store) Reload() error { return s.reload() }

func readAccount(path, username string) (auth.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return auth.Account{}, err
	}
	defer f.Close()

	var fields []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields = append(fields, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return auth.Account{}, err
	}
	if len(fields) < 5 {
		return auth.Account{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}
	mtu, err := strconv.ParseUint(strings.TrimSpace(fields[4]), 10, 16)
	if err != nil {
		return auth.Account{}, fmt.Errorf("invalid mtu: %w", err)
	}
	return auth.Account{
		Username: username,
		PassHash: fields[0],
		Dev:      fields[1],
		IPv4:     fields[2],
		Netmask:  fields[3],
		MTU:      uint16(mtu),
	}, nil
}

// Authenticate implements auth.Adapter.
func (s *Store) Authenticate(username, password string) (wire.IfaceConfigPayload, bool) {
	s.mu.RLock()
	acc, found := s.accounts[username]
	s.mu.RUnlock()
	if !found {
		return wire.IfaceConfigPayload{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PassHash), []byte(password)) != nil {
		return wire.IfaceConfigPayload{}, false
	}
	return acc.Iface(), true
}

func (s *Store) Close() error { return nil }

// HashPassword returns the bcrypt hash of password, in the form the
// first line of a user file holds.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}
