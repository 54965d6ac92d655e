package sqlitestore

import (
	"path/filepath"
	"testing"
)

func TestUpsertAndAuthenticate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teavpn2.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Upsert("alice", "hunter2", "teavpn2-srv", "10.8.8.2", "255.255.255.0", 1480); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	iface, ok := s.Authenticate("alice", "hunter2")
	if !ok {
		t.Fatal("expected authentication success")
	}
	if iface.DevString() != "teavpn2-srv" || iface.MTU != 1480 {
		t.Errorf("unexpected iface: %+v", iface)
	}

	if _, ok := s.Authenticate("alice", "wrong"); ok {
		t.Error("expected authentication failure on bad password")
	}
	if _, ok := s.Authenticate("mallory", "x"); ok {
		t.Error("expected authentication failure for unknown user")
	}
}
