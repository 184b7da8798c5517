package token

import (
	"context"
	"testing"
)

func TestMint_Unique(t *testing.T) {
	seen := map[string]bool{}
	m := NewMinter(func(_ context.Context, tok string) (bool, error) {
		return seen[tok], nil
	})

	for i := 0; i < 1000; i++ {
		tok, err := m.Mint(context.Background())
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if len(tok) != 32 {
			t.Fatalf("token %q is not a 32-char hex digest", tok)
		}
		if seen[tok] {
			t.Fatalf("token %q minted twice", tok)
		}
		seen[tok] = true
	}
}

func TestMint_RetriesOnCollision(t *testing.T) {
	calls := 0
	m := NewMinter(func(_ context.Context, tok string) (bool, error) {
		calls++
		return calls <= 3, nil // first three candidates "taken"
	})

	tok, err := m.Mint(context.Background())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tok == "" {
		t.Fatal("empty token")
	}
	if calls != 4 {
		t.Fatalf("expected 4 existence checks, got %d", calls)
	}
}

func TestMint_ExhaustedEntropy(t *testing.T) {
	m := NewMinter(func(_ context.Context, tok string) (bool, error) {
		return true, nil // everything collides
	})

	if _, err := m.Mint(context.Background()); err != ErrEntropyExhausted {
		t.Fatalf("expected ErrEntropyExhausted, got %v", err)
	}
}
