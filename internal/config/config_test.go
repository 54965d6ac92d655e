package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teavpn2.ini")
	content := "[socket]\nbind_port = 4444\nmax_conn = 8\n\n[iface]\ndev = vpn-test\npublic_ip = 203.0.113.5\ngateway_ip = 10.8.0.1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Socket.BindPort != 4444 {
		t.Errorf("BindPort = %d, want 4444", cfg.Socket.BindPort)
	}
	if cfg.Socket.MaxConn != 8 {
		t.Errorf("MaxConn = %d, want 8", cfg.Socket.MaxConn)
	}
	if cfg.Iface.Dev != "vpn-test" {
		t.Errorf("Dev = %q, want vpn-test", cfg.Iface.Dev)
	}
	if cfg.Iface.PublicIP != "203.0.113.5" || cfg.Iface.GatewayIP != "10.8.0.1" {
		t.Errorf("split-default routing fields = %+v", cfg.Iface)
	}
	// Unset keys keep their default.
	if cfg.Socket.BindAddr != Default().Socket.BindAddr {
		t.Errorf("BindAddr = %q, want default %q", cfg.Socket.BindAddr, Default().Socket.BindAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRejectsBadMaxConn(t *testing.T) {
	cfg := Default()
	cfg.Socket.MaxConn = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero max_conn")
	}
}

func TestValidateRejectsLongDevName(t *testing.T) {
	cfg := Default()
	cfg.Iface.Dev = "this-name-is-way-too-long-for-ifreq"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for long dev name")
	}
}
