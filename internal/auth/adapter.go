// Package auth defines the Auth Adapter boundary and its two concrete
// backends (flat-file and SQLite), both backed by bcrypt password
// hashing rather than cleartext comparison.
package auth

import "github.com/teavpn2/server/internal/wire"

// Adapter authenticates a username/password pair and, on success,
// returns the interface assignment the server hands back to the client.
type Adapter interface {
	Authenticate(username, password string) (assigned wire.IfaceConfigPayload, ok bool)
	Close() error
}

// Account is one user's credential-store record.
type Account struct {
	Username string
	PassHash string // bcrypt hash
	Dev      string
	IPv4     string
	Netmask  string
	MTU      uint16
}

// Iface converts the account's stored assignment fields into the wire payload.
func (a Account) Iface() wire.IfaceConfigPayload {
	return wire.NewIfaceConfigPayload(a.Dev, a.IPv4, a.Netmask, a.MTU)
}
