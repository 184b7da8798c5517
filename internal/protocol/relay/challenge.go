package relay

import (
	"context"

	"pgprelay/internal/model"
	"pgprelay/pkg/errors"
)

// Enter registers a new user. A challenge token is minted, stored as the
// user's pending challenge, and returned sealed under the supplied public
// key; only the holder of the matching private key can produce the plaintext
// for Verify. An existing username is an explicit conflict.
func (s *Service) Enter(ctx context.Context, username, armoredKey string) (string, error) {
	l := s.lock(userKey(username))
	l.Lock()
	defer l.Unlock()

	existing, err := s.users.GetByName(ctx, username)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Database", "user lookup failed", err)
	}
	if existing != nil {
		return "", errors.AlreadyExists("Username in use")
	}

	challenge, err := s.minter.Mint(ctx)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Internal", "challenge generation failed", err)
	}

	// Seal before storing so a bad key leaves no half-registered user.
	sealed, err := s.engine.Encrypt(ctx, armoredKey, challenge)
	if err != nil {
		return "", errors.Encryption("The server was unable to encrypt the challenge with the supplied public key", err)
	}

	u := &model.User{
		Username:  username,
		Key:       armoredKey,
		Challenge: challenge,
	}
	if _, err := s.users.Create(ctx, u); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Database", "user creation failed", err)
	}

	return sealed, nil
}

// Verify resolves a decrypted challenge to the user it was issued to and
// clears it. A challenge resolves exactly once; replaying the decrypted
// value fails.
func (s *Service) Verify(ctx context.Context, decryptedHash string) (*model.User, error) {
	u, err := s.users.GetByChallenge(ctx, decryptedHash)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "challenge lookup failed", err)
	}
	if u == nil {
		return nil, errors.NotFound("No pending challenge matches that hash")
	}

	l := s.lock(userKey(u.Username))
	l.Lock()
	defer l.Unlock()

	// Re-check under the lock: a concurrent Verify may have already
	// consumed the challenge.
	cur, err := s.users.GetByChallenge(ctx, decryptedHash)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "challenge lookup failed", err)
	}
	if cur == nil {
		return nil, errors.NotFound("No pending challenge matches that hash")
	}

	if err := s.users.UpdateChallenge(ctx, u.ID, ""); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "challenge clear failed", err)
	}
	return u, nil
}

// Key returns a user's armored public key.
func (s *Service) Key(ctx context.Context, username string) (*model.User, error) {
	u, err := s.users.GetByName(ctx, username)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "user lookup failed", err)
	}
	if u == nil {
		return nil, errors.NotFound("User does not exist")
	}
	return u, nil
}
