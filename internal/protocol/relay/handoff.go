package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pgprelay/internal/model"
	"pgprelay/pkg/errors"

	"golang.org/x/sync/errgroup"
)

// Send queues a message and returns its confirmation token sealed under the
// SENDER's public key. Knowing a username is not enough to send as that user:
// the message stays invisible to the receiver until the real key holder
// decrypts the token and confirms.
func (s *Service) Send(ctx context.Context, sender, receiver, body string) (string, error) {
	from, err := s.users.GetByName(ctx, sender)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Database", "user lookup failed", err)
	}
	to, err := s.users.GetByName(ctx, receiver)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Database", "user lookup failed", err)
	}

	if from == nil || to == nil {
		var missing []string
		if from == nil {
			missing = append(missing, fmt.Sprintf("'%s'", sender))
		}
		if to == nil {
			missing = append(missing, fmt.Sprintf("'%s'", receiver))
		}
		if len(missing) > 1 {
			return "", errors.NotFound("Users do not exist: " + strings.Join(missing, " and "))
		}
		return "", errors.NotFound("User does not exist: " + missing[0])
	}

	tok, err := s.minter.Mint(ctx)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Internal", "token generation failed", err)
	}

	msg := &model.Message{
		Sender:   sender,
		Receiver: receiver,
		Body:     body,
		Token:    tok,
		State:    model.StateQueued,
	}
	if _, err := s.messages.Create(ctx, msg); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Database", "message creation failed", err)
	}

	sealed, err := s.engine.Encrypt(ctx, from.Key, tok)
	if err != nil {
		// The queued row stands; it is unreachable without the token and the
		// sweep never touches queued messages, so a resend is safe.
		return "", errors.Encryption("The server was unable to encrypt the message with the senders public key", err)
	}

	return sealed, nil
}

// ConfirmSend flips a queued message to deliverable once the sender proves
// authorship by returning the decrypted token.
func (s *Service) ConfirmSend(ctx context.Context, decryptedHash string) (*model.Message, error) {
	msg, err := s.messages.GetByToken(ctx, decryptedHash, model.StateQueued)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "message lookup failed", err)
	}
	if msg == nil {
		return nil, errors.NotFound("Message with that hash does not exist")
	}

	l := s.lock(msgKey(msg.ID))
	l.Lock()
	defer l.Unlock()

	// Re-check under the lock: the message may have left the queued state
	// since the lookup.
	cur, err := s.messages.GetByToken(ctx, decryptedHash, model.StateQueued)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "message lookup failed", err)
	}
	if cur == nil {
		return nil, errors.NotFound("Message with that hash does not exist")
	}

	if err := s.messages.SetState(ctx, cur.ID, model.StateDeliverable, time.Time{}); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "message update failed", err)
	}
	cur.State = model.StateDeliverable
	return cur, nil
}

// Retrieve returns every deliverable message addressed to the user. Each
// message gets a freshly rotated token, invalidating any ciphertext issued by
// an earlier retrieve, and the new token is sealed under the receiver's key.
//
// Rotations are committed one by one under the per-message lock before any
// encryption starts; the fan-out then runs concurrently with all-or-fail
// join. On failure the committed rotations stand: a retry simply seals the
// current tokens again.
func (s *Service) Retrieve(ctx context.Context, username string) ([]model.Delivery, error) {
	u, err := s.users.GetByName(ctx, username)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "user lookup failed", err)
	}
	if u == nil {
		return nil, errors.NotFound("User does not exist")
	}

	msgs, err := s.messages.FindDeliverable(ctx, username)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "Database", "message lookup failed", err)
	}

	tokens := make([]string, len(msgs))
	for i, msg := range msgs {
		tok, err := s.rotate(ctx, msg)
		if err != nil {
			return nil, err
		}
		tokens[i] = tok
	}

	deliveries := make([]model.Delivery, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, msg := range msgs {
		i, msg := i, msg
		g.Go(func() error {
			sealed, err := s.engine.Encrypt(gctx, u.Key, tokens[i])
			if err != nil {
				return err
			}
			deliveries[i] = model.Delivery{
				Sender:  msg.Sender,
				Message: msg.Body,
				PGPHash: sealed,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Encryption("The server was unable to encrypt the messages with the users public key", err)
	}

	return deliveries, nil
}

func (s *Service) rotate(ctx context.Context, msg *model.Message) (string, error) {
	l := s.lock(msgKey(msg.ID))
	l.Lock()
	defer l.Unlock()

	tok, err := s.minter.Mint(ctx)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Internal", "token generation failed", err)
	}
	if err := s.messages.UpdateToken(ctx, msg.ID, tok); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "Database", "token rotation failed", err)
	}
	return tok, nil
}

// ConfirmCollect marks messages collected. Each hash must match the CURRENT
// token of a deliverable message; hashes from before a rotation no longer
// resolve. Collected messages are removed by the sweep.
func (s *Service) ConfirmCollect(ctx context.Context, decryptedHashes []string) (int, error) {
	collected := 0
	for _, hash := range decryptedHashes {
		msg, err := s.messages.GetByToken(ctx, hash, model.StateDeliverable)
		if err != nil {
			return collected, errors.Wrap(errors.CodeInternal, "Database", "message lookup failed", err)
		}
		if msg == nil {
			continue
		}

		l := s.lock(msgKey(msg.ID))
		l.Lock()
		// Re-check under the lock: a rotation may have invalidated the hash
		// between the lookup and here, and only the current token collects.
		cur, cerr := s.messages.GetByToken(ctx, hash, model.StateDeliverable)
		if cerr != nil {
			l.Unlock()
			return collected, errors.Wrap(errors.CodeInternal, "Database", "message lookup failed", cerr)
		}
		if cur == nil {
			l.Unlock()
			continue
		}
		err = s.messages.SetState(ctx, cur.ID, model.StateCollected, time.Now())
		l.Unlock()
		if err != nil {
			return collected, errors.Wrap(errors.CodeInternal, "Database", "message update failed", err)
		}
		collected++
	}

	if collected == 0 {
		return 0, errors.NotFound("No deliverable message matches the given hash")
	}
	return collected, nil
}
