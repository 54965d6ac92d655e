// Command teavpn2 runs the server side of the tunnel: it parses CLI
// flags and an optional config file, then hands control to the
// lifecycle controller until a shutdown signal arrives.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/teavpn2/server/internal/config"
	"github.com/teavpn2/server/internal/lifecycle"
	"github.com/teavpn2/server/internal/logging"
)

var opt struct {
	Help              bool
	ConfigPath        string
	DataDir           string
	Verbose           int
	Thread            int
	SockType          string
	BindAddr          string
	BindPort          uint16
	MaxConn           uint16
	Backlog           int
	DisableEncryption bool
	SSLCert           string
	SSLPrivKey        string
	Dev               string
	MTU               uint16
	IPv4              string
	IPv4Netmask       string
	PublicIP          string
	GatewayIP         string
	AuthBackend       string
	DebugAddr         string
}

func init() {
	pflag.BoolVarP(&opt.Help, "help", "h", false, "Show this help text")
	pflag.StringVar(&opt.ConfigPath, "config", "", "Path to an INI config file")
	pflag.StringVar(&opt.DataDir, "data-dir", "", "Directory holding credential/TLS material")
	pflag.IntVarP(&opt.Verbose, "verbose", "v", -1, "Log verbosity (0=info, 1=debug, 2=trace)")
	pflag.Lookup("verbose").NoOptDefVal = "1" // bare --verbose means debug
	pflag.IntVar(&opt.Thread, "thread", 0, "Reactor thread count (only 1 is implemented)")
	pflag.StringVar(&opt.SockType, "sock-type", "", "Transport: tcp or udp")
	pflag.StringVar(&opt.BindAddr, "bind-addr", "", "Address to listen on")
	pflag.Uint16Var(&opt.BindPort, "bind-port", 0, "Port to listen on")
	pflag.Uint16Var(&opt.MaxConn, "max-conn", 0, "Maximum concurrent clients")
	pflag.IntVar(&opt.Backlog, "backlog", 0, "Listen backlog size")
	pflag.BoolVar(&opt.DisableEncryption, "disable-encryption", false, "Disable TLS on the client socket")
	pflag.StringVar(&opt.SSLCert, "ssl-cert", "", "Path to the TLS certificate")
	pflag.StringVar(&opt.SSLPrivKey, "ssl-priv-key", "", "Path to the TLS private key")
	pflag.StringVar(&opt.Dev, "dev", "", "TUN interface name")
	pflag.Uint16Var(&opt.MTU, "mtu", 0, "TUN interface MTU")
	pflag.StringVar(&opt.IPv4, "ipv4", "", "TUN interface IPv4 address")
	pflag.StringVar(&opt.IPv4Netmask, "ipv4-netmask", "", "TUN interface IPv4 netmask")
	pflag.StringVar(&opt.PublicIP, "public-ip", "", "Server's public IP, enables split-default routing with --gateway-ip")
	pflag.StringVar(&opt.GatewayIP, "gateway-ip", "", "Tunnel gateway IP for split-default routing")
	pflag.StringVar(&opt.AuthBackend, "auth-backend", "", "Credential backend: file or sqlite")
	pflag.StringVar(&opt.DebugAddr, "debug-addr", "", "Loopback address to expose Prometheus metrics on")
}

func main() {
	pflag.Parse()
	if opt.Help {
		fmt.Printf("usage: %s [options]\n\noptions:\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		os.Exit(0)
	}

	cfg, err := resolveConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: verbosityLevel(cfg.Sys.Verbose),
	})))

	ctrl, err := lifecycle.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := ctrl.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig loads the config file (if any) and overlays every CLI
// flag the user actually set on top of it, flags winning per §6.
func resolveConfig() (config.Configuration, error) {
	var cfg config.Configuration
	var err error
	if opt.ConfigPath != "" {
		cfg, err = config.Load(opt.ConfigPath)
		if err != nil {
			return config.Configuration{}, fmt.Errorf("load config: %w", err)
		}
		cfg.Sys.ConfigPath = opt.ConfigPath
	} else {
		cfg = config.Default()
	}

	overlayFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		return config.Configuration{}, err
	}
	return cfg, nil
}

func overlayFlags(cfg *config.Configuration) {
	set := pflag.CommandLine
	if set.Changed("data-dir") {
		cfg.Sys.DataDir = opt.DataDir
	}
	if set.Changed("verbose") {
		cfg.Sys.Verbose = opt.Verbose
	}
	if set.Changed("thread") {
		cfg.Sys.Thread = opt.Thread
	}
	if set.Changed("sock-type") {
		cfg.Socket.Type = config.SockType(opt.SockType)
	}
	if set.Changed("bind-addr") {
		cfg.Socket.BindAddr = opt.BindAddr
	}
	if set.Changed("bind-port") {
		cfg.Socket.BindPort = opt.BindPort
	}
	if set.Changed("max-conn") {
		cfg.Socket.MaxConn = opt.MaxConn
	}
	if set.Changed("backlog") {
		cfg.Socket.Backlog = opt.Backlog
	}
	if set.Changed("disable-encryption") {
		cfg.Socket.DisableEncryption = opt.DisableEncryption
	}
	if set.Changed("ssl-cert") {
		cfg.Socket.SSLCert = opt.SSLCert
	}
	if set.Changed("ssl-priv-key") {
		cfg.Socket.SSLPrivKey = opt.SSLPrivKey
	}
	if set.Changed("dev") {
		cfg.Iface.Dev = opt.Dev
	}
	if set.Changed("mtu") {
		cfg.Iface.MTU = opt.MTU
	}
	if set.Changed("ipv4") {
		cfg.Iface.IPv4 = opt.IPv4
	}
	if set.Changed("ipv4-netmask") {
		cfg.Iface.IPv4Netmask = opt.IPv4Netmask
	}
	if set.Changed("public-ip") {
		cfg.Iface.PublicIP = opt.PublicIP
	}
	if set.Changed("gateway-ip") {
		cfg.Iface.GatewayIP = opt.GatewayIP
	}
	if set.Changed("auth-backend") {
		cfg.Auth.Backend = opt.AuthBackend
	}
	if set.Changed("debug-addr") {
		cfg.Debug.Addr = opt.DebugAddr
	}
}

func verbosityLevel(v int) slog.Level {
	switch {
	case v >= 2:
		return logging.LevelTrace
	case v == 1:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
