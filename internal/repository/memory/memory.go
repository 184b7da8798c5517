// Package memory holds map-backed repositories with the same behavior as the
// Mongo ones. They back the protocol and server tests and run the relay
// without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"pgprelay/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User // by username
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*model.User)}
}

func (r *UserRepo) GetByName(_ context.Context, name string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[name]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByChallenge(_ context.Context, challenge string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Challenge != "" && u.Challenge == challenge {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) Create(_ context.Context, user *model.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = primitive.NewObjectID()
	cp := *user
	r.users[user.Username] = &cp
	return user.ID, nil
}

func (r *UserRepo) UpdateChallenge(_ context.Context, id primitive.ObjectID, challenge string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			u.Challenge = challenge
			return nil
		}
	}
	return nil
}

func (r *UserRepo) ChallengeExists(_ context.Context, challenge string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Challenge != "" && u.Challenge == challenge {
			return true, nil
		}
	}
	return false, nil
}

type MessageRepo struct {
	mu   sync.RWMutex
	msgs map[primitive.ObjectID]*model.Message
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{msgs: make(map[primitive.ObjectID]*model.Message)}
}

func (r *MessageRepo) Create(_ context.Context, msg *model.Message) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = primitive.NewObjectID()
	cp := *msg
	r.msgs[msg.ID] = &cp
	return msg.ID, nil
}

func (r *MessageRepo) GetByToken(_ context.Context, token string, state model.MessageState) (*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.msgs {
		if m.Token == token && m.State == state {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MessageRepo) FindDeliverable(_ context.Context, receiver string) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Message
	for _, m := range r.msgs {
		if m.Receiver == receiver && m.State == model.StateDeliverable {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MessageRepo) UpdateToken(_ context.Context, id primitive.ObjectID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.msgs[id]; ok {
		m.Token = token
	}
	return nil
}

func (r *MessageRepo) SetState(_ context.Context, id primitive.ObjectID, state model.MessageState, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.msgs[id]; ok {
		m.State = state
		if state == model.StateCollected {
			m.CollectedAt = at
		}
	}
	return nil
}

func (r *MessageRepo) TokenExists(_ context.Context, token string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.msgs {
		if m.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (r *MessageRepo) DeleteCollectedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, m := range r.msgs {
		if m.State == model.StateCollected && !m.CollectedAt.After(cutoff) {
			delete(r.msgs, id)
			n++
		}
	}
	return n, nil
}
