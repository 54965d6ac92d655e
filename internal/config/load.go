package config

import (
	"gopkg.in/ini.v1"
)

// Load reads path and overlays its values onto the defaults. Missing
// sections/keys keep their default value; Load never fails on a key
// being absent, only on the file being unreadable or malformed.
func Load(path string) (Configuration, error) {
	cfg := Default()
	cfg.Sys.ConfigPath = path
	if path == "" {
		return cfg, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}

	sys := f.Section("sys")
	cfg.Sys.DataDir = sys.Key("data_dir").MustString(cfg.Sys.DataDir)
	cfg.Sys.Verbose = sys.Key("verbose").MustInt(cfg.Sys.Verbose)
	cfg.Sys.Thread = sys.Key("thread").MustInt(cfg.Sys.Thread)

	sock := f.Section("socket")
	cfg.Socket.Type = SockType(sock.Key("sock_type").MustString(string(cfg.Socket.Type)))
	cfg.Socket.BindAddr = sock.Key("bind_addr").MustString(cfg.Socket.BindAddr)
	cfg.Socket.BindPort = uint16(sock.Key("bind_port").MustUint(uint(cfg.Socket.BindPort)))
	cfg.Socket.MaxConn = uint16(sock.Key("max_conn").MustUint(uint(cfg.Socket.MaxConn)))
	cfg.Socket.Backlog = sock.Key("backlog").MustInt(cfg.Socket.Backlog)
	cfg.Socket.DisableEncryption = sock.Key("disable_encryption").MustBool(cfg.Socket.DisableEncryption)
	cfg.Socket.SSLCert = sock.Key("ssl_cert").MustString(cfg.Socket.SSLCert)
	cfg.Socket.SSLPrivKey = sock.Key("ssl_priv_key").MustString(cfg.Socket.SSLPrivKey)

	iface := f.Section("iface")
	cfg.Iface.Dev = iface.Key("dev").MustString(cfg.Iface.Dev)
	cfg.Iface.MTU = uint16(iface.Key("mtu").MustUint(uint(cfg.Iface.MTU)))
	cfg.Iface.IPv4 = iface.Key("ipv4").MustString(cfg.Iface.IPv4)
	cfg.Iface.IPv4Netmask = iface.Key("ipv4_netmask").MustString(cfg.Iface.IPv4Netmask)
	cfg.Iface.PublicIP = iface.Key("public_ip").MustString(cfg.Iface.PublicIP)
	cfg.Iface.GatewayIP = iface.Key("gateway_ip").MustString(cfg.Iface.GatewayIP)

	auth := f.Section("auth")
	cfg.Auth.Backend = auth.Key("backend").MustString(cfg.Auth.Backend)

	dbg := f.Section("debug")
	cfg.Debug.Addr = dbg.Key("addr").MustString(cfg.Debug.Addr)

	return cfg, nil
}
