package client

import (
	"fmt"
	"os"
	"path/filepath"
)

// Keyring stores armored key blocks on disk, one pair per username.
type Keyring struct {
	dir string
}

func NewKeyring(dir string) (*Keyring, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keyring: create dir: %w", err)
	}
	return &Keyring{dir: dir}, nil
}

func (k *Keyring) pubPath(name string) string {
	return filepath.Join(k.dir, name+".pub.asc")
}

func (k *Keyring) privPath(name string) string {
	return filepath.Join(k.dir, name+".priv.asc")
}

func (k *Keyring) Save(name, pub, priv string) error {
	if err := os.WriteFile(k.pubPath(name), []byte(pub), 0o600); err != nil {
		return fmt.Errorf("keyring: write public key: %w", err)
	}
	if err := os.WriteFile(k.privPath(name), []byte(priv), 0o600); err != nil {
		return fmt.Errorf("keyring: write private key: %w", err)
	}
	return nil
}

func (k *Keyring) Public(name string) (string, error) {
	data, err := os.ReadFile(k.pubPath(name))
	if err != nil {
		return "", fmt.Errorf("keyring: read public key for %q: %w", name, err)
	}
	return string(data), nil
}

func (k *Keyring) Private(name string) (string, error) {
	data, err := os.ReadFile(k.privPath(name))
	if err != nil {
		return "", fmt.Errorf("keyring: read private key for %q: %w", name, err)
	}
	return string(data), nil
}
