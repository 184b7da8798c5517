// Package relay implements the challenge-response authentication and message
// handoff protocol. The server proves nothing itself: it mints unguessable
// tokens, seals them under a user's public key, and treats the decrypted
// token coming back as proof of private-key possession.
package relay

import (
	"context"
	"sync"
	"time"

	"pgprelay/internal/model"
	"pgprelay/internal/token"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	UserRepository interface {
		GetByName(ctx context.Context, name string) (*model.User, error)
		GetByChallenge(ctx context.Context, challenge string) (*model.User, error)
		Create(ctx context.Context, user *model.User) (primitive.ObjectID, error)
		UpdateChallenge(ctx context.Context, id primitive.ObjectID, challenge string) error
		ChallengeExists(ctx context.Context, challenge string) (bool, error)
	}

	MessageRepository interface {
		Create(ctx context.Context, msg *model.Message) (primitive.ObjectID, error)
		GetByToken(ctx context.Context, token string, state model.MessageState) (*model.Message, error)
		FindDeliverable(ctx context.Context, receiver string) ([]*model.Message, error)
		UpdateToken(ctx context.Context, id primitive.ObjectID, token string) error
		SetState(ctx context.Context, id primitive.ObjectID, state model.MessageState, at time.Time) error
		TokenExists(ctx context.Context, token string) (bool, error)
		DeleteCollectedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// Encrypter is the external asymmetric-cryptography collaborator. The
	// protocol never retries a failed encryption; the caller resubmits.
	Encrypter interface {
		Encrypt(ctx context.Context, armoredKey, plaintext string) (string, error)
	}

	Service struct {
		users    UserRepository
		messages MessageRepository
		minter   *token.Minter
		engine   Encrypter
		grace    time.Duration

		// The store has no transactions, so read-then-write on the same
		// record is serialized here with one mutex per record key.
		mu    sync.Mutex
		locks map[string]*sync.Mutex
	}
)

func NewService(users UserRepository, messages MessageRepository, engine Encrypter, grace time.Duration) *Service {
	s := &Service{
		users:    users,
		messages: messages,
		engine:   engine,
		grace:    grace,
		locks:    make(map[string]*sync.Mutex),
	}
	s.minter = token.NewMinter(s.tokenInUse)
	return s
}

// tokenInUse spans both collections: a minted value must not collide with any
// pending user challenge or any message token.
func (s *Service) tokenInUse(ctx context.Context, tok string) (bool, error) {
	inUse, err := s.users.ChallengeExists(ctx, tok)
	if err != nil || inUse {
		return inUse, err
	}
	return s.messages.TokenExists(ctx, tok)
}

func (s *Service) lock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func userKey(name string) string          { return "user:" + name }
func msgKey(id primitive.ObjectID) string { return "msg:" + id.Hex() }
