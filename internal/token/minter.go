package token

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrEntropyExhausted is returned when the collision retry bound is hit. With
// 128-bit tokens this is not expected to happen in practice.
var ErrEntropyExhausted = errors.New("token: exhausted mint attempts without a unique value")

const defaultMaxAttempts = 32

// ExistsFunc reports whether a token is already in use anywhere, across both
// user challenges and message tokens.
type ExistsFunc func(ctx context.Context, token string) (bool, error)

type Minter struct {
	exists      ExistsFunc
	maxAttempts int
}

func NewMinter(exists ExistsFunc) *Minter {
	return &Minter{
		exists:      exists,
		maxAttempts: defaultMaxAttempts,
	}
}

// Mint returns a token that does not currently collide with any outstanding
// challenge or message token. Collisions are retried internally and never
// surface to callers.
func (m *Minter) Mint(ctx context.Context) (string, error) {
	for i := 0; i < m.maxAttempts; i++ {
		tok, err := digest()
		if err != nil {
			return "", err
		}

		inUse, err := m.exists(ctx, tok)
		if err != nil {
			return "", err
		}
		if !inUse {
			return tok, nil
		}
	}
	return "", ErrEntropyExhausted
}

// digest derives the token: hex md5 over ten random bytes (hex encoded) plus
// a millisecond timestamp. The shape is kept for compatibility with tokens
// already in circulation.
func digest() (string, error) {
	var raw [10]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("token: read random bytes: %w", err)
	}

	sum := md5.Sum([]byte(fmt.Sprintf("%s%d", hex.EncodeToString(raw[:]), time.Now().UnixMilli())))
	return hex.EncodeToString(sum[:]), nil
}
