package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	// MessageState tracks a message through the handoff state machine.
	MessageState string

	Message struct {
		ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
		Sender   string             `bson:"sender" json:"sender"`
		Receiver string             `bson:"receiver" json:"receiver"`
		Body     string             `bson:"body" json:"body"`

		// Token is the current externally-visible handle: the sender's
		// confirmation challenge while queued, then the receiver's retrieval
		// handle. Rotated on every retrieve so old ciphertexts cannot be
		// replayed. Globally unique across messages and user challenges.
		Token string `bson:"token" json:"-"`

		State       MessageState `bson:"state" json:"-"`
		CollectedAt time.Time    `bson:"collectedAt,omitempty" json:"-"`
	}
)

const (
	// StateQueued: created by send, authorship not yet confirmed.
	StateQueued MessageState = "queued"
	// StateDeliverable: sender confirmed, awaiting receiver collection.
	StateDeliverable MessageState = "deliverable"
	// StateCollected: terminal, removed by the sweep.
	StateCollected MessageState = "collected"
)
