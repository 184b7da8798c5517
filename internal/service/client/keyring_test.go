package client

import "testing"

func TestKeyring_SaveLoad(t *testing.T) {
	k, err := NewKeyring(t.TempDir())
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}

	if err := k.Save("alice", "PUB", "PRIV"); err != nil {
		t.Fatalf("save: %v", err)
	}

	pub, err := k.Public("alice")
	if err != nil {
		t.Fatalf("public: %v", err)
	}
	if pub != "PUB" {
		t.Fatalf("public mismatch: %q", pub)
	}

	priv, err := k.Private("alice")
	if err != nil {
		t.Fatalf("private: %v", err)
	}
	if priv != "PRIV" {
		t.Fatalf("private mismatch: %q", priv)
	}
}

func TestKeyring_MissingKey(t *testing.T) {
	k, err := NewKeyring(t.TempDir())
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}

	if _, err := k.Private("nobody"); err == nil {
		t.Fatal("expected error for missing key")
	}
}
