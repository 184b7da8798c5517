package pgp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"

	// Register RIPEMD160, which openpgp falls back to for keys without a
	// preferred-hash self-signature.
	_ "golang.org/x/crypto/ripemd160"
)

const messageType = "PGP MESSAGE"

type (
	// Engine seals plaintext tokens under armored public keys. The relay
	// treats it as an opaque capability: it never inspects key material
	// beyond handing it to openpgp, and never decrypts anything.
	Engine struct{}
)

func NewEngine() *Engine {
	return &Engine{}
}

// Encrypt seals plaintext under the armored public key and returns an armored
// ciphertext. A malformed key or failed packet write is the caller's 500.
func (e *Engine) Encrypt(ctx context.Context, armoredKey, plaintext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKey))
	if err != nil {
		return "", fmt.Errorf("pgp: read armored key: %w", err)
	}

	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, messageType, nil)
	if err != nil {
		return "", fmt.Errorf("pgp: armor encode: %w", err)
	}

	pw, err := openpgp.Encrypt(aw, ring, nil, nil, nil)
	if err != nil {
		aw.Close()
		return "", fmt.Errorf("pgp: encrypt: %w", err)
	}
	if _, err := io.WriteString(pw, plaintext); err != nil {
		pw.Close()
		aw.Close()
		return "", fmt.Errorf("pgp: write plaintext: %w", err)
	}
	if err := pw.Close(); err != nil {
		aw.Close()
		return "", fmt.Errorf("pgp: close plaintext writer: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("pgp: close armor writer: %w", err)
	}

	return buf.String(), nil
}

// Decrypt opens an armored ciphertext with the armored private key. Used by
// the client and by tests; the server never calls this.
func Decrypt(armoredPrivKey, armoredCiphertext string) (string, error) {
	ring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredPrivKey))
	if err != nil {
		return "", fmt.Errorf("pgp: read private keyring: %w", err)
	}

	block, err := armor.Decode(strings.NewReader(armoredCiphertext))
	if err != nil {
		return "", fmt.Errorf("pgp: decode armored message: %w", err)
	}

	md, err := openpgp.ReadMessage(block.Body, ring, nil, nil)
	if err != nil {
		return "", fmt.Errorf("pgp: read message: %w", err)
	}

	plain, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return "", fmt.Errorf("pgp: read body: %w", err)
	}
	return string(plain), nil
}

// GenerateKeyPair creates a fresh entity and returns its armored public and
// private blocks. SerializePrivate runs first since it signs the identities.
func GenerateKeyPair(name string) (pub, priv string, err error) {
	entity, err := openpgp.NewEntity(name, "", "", nil)
	if err != nil {
		return "", "", fmt.Errorf("pgp: new entity: %w", err)
	}

	var privBuf bytes.Buffer
	pw, err := armor.Encode(&privBuf, openpgp.PrivateKeyType, nil)
	if err != nil {
		return "", "", fmt.Errorf("pgp: armor private: %w", err)
	}
	if err := entity.SerializePrivate(pw, nil); err != nil {
		pw.Close()
		return "", "", fmt.Errorf("pgp: serialize private: %w", err)
	}
	if err := pw.Close(); err != nil {
		return "", "", fmt.Errorf("pgp: close private armor: %w", err)
	}

	var pubBuf bytes.Buffer
	aw, err := armor.Encode(&pubBuf, openpgp.PublicKeyType, nil)
	if err != nil {
		return "", "", fmt.Errorf("pgp: armor public: %w", err)
	}
	if err := entity.Serialize(aw); err != nil {
		aw.Close()
		return "", "", fmt.Errorf("pgp: serialize public: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", "", fmt.Errorf("pgp: close public armor: %w", err)
	}

	return pubBuf.String(), privBuf.String(), nil
}
