// Package config defines the TeaVPN2 server configuration structure and
// loads it from an INI file with CLI-flag overrides, mirroring the
// [sys]/[socket]/[iface] layout the server expects.
package config

import "fmt"

// System holds process-wide settings.
type System struct {
	ConfigPath string
	DataDir    string
	Verbose    int
	Thread     int
}

// SockType names the client transport. Validate accepts tcp and udp, but
// the listener is always a TCP socket; udp is not acted on.
type SockType string

const (
	SockTCP SockType = "tcp"
	SockUDP SockType = "udp"
)

// Socket holds listener settings.
type Socket struct {
	Type              SockType
	BindAddr          string
	BindPort          uint16
	MaxConn           uint16
	Backlog           int
	DisableEncryption bool
	SSLCert           string
	SSLPrivKey        string
}

// Iface holds the TUN device settings.
type Iface struct {
	Dev         string
	MTU         uint16
	IPv4        string
	IPv4Netmask string

	// PublicIP/GatewayIP, when both set, enable split-default routing
	// (0.0.0.0/1, 128.0.0.0/1) through the tunnel in the Provisioner.
	PublicIP  string
	GatewayIP string
}

// Auth selects and configures the credential backend.
type Auth struct {
	Backend string // "file" or "sqlite"
}

// Debug holds optional observability settings.
type Debug struct {
	Addr string // loopback-only HTTP listener for metrics; empty disables it
}

// Configuration is the fully resolved, read-only-after-load server config.
type Configuration struct {
	Sys    System
	Socket Socket
	Iface  Iface
	Auth   Auth
	Debug  Debug
}

// Validate checks field ranges the rest of the server assumes hold.
func (c *Configuration) Validate() error {
	if c.Socket.MaxConn == 0 {
		return fmt.Errorf("config: socket.max_conn must be > 0")
	}
	if c.Socket.Type != SockTCP && c.Socket.Type != SockUDP {
		return fmt.Errorf("config: socket.sock_type must be tcp or udp, got %q", c.Socket.Type)
	}
	if len(c.Iface.Dev) >= 16 {
		return fmt.Errorf("config: iface.dev must be under 16 bytes, got %q", c.Iface.Dev)
	}
	if c.Sys.Thread < 1 {
		return fmt.Errorf("config: sys.thread must be >= 1")
	}
	if c.Auth.Backend != "" && c.Auth.Backend != "file" && c.Auth.Backend != "sqlite" {
		return fmt.Errorf("config: auth.backend must be file or sqlite, got %q", c.Auth.Backend)
	}
	return nil
}

// Default returns a Configuration with the same defaults the CLI flags fall back to.
func Default() Configuration {
	return Configuration{
		Sys: System{
			DataDir: "/var/lib/teavpn2",
			Thread:  1,
		},
		Socket: Socket{
			Type:     SockTCP,
			BindAddr: "0.0.0.0",
			BindPort: 55555,
			MaxConn:  32,
			Backlog:  10,
		},
		Iface: Iface{
			Dev:         "teavpn2-srv",
			MTU:         1400,
			IPv4:        "10.8.0.1",
			IPv4Netmask: "255.255.255.0",
		},
		Auth: Auth{Backend: "file"},
	}
}
