package model

import "go.mongodb.org/mongo-driver/bson/primitive"

type (
	// User is a registered principal. The server only ever holds the armored
	// public half of the user's key pair.
	User struct {
		ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
		Username string             `bson:"username" json:"username"`
		Key      string             `bson:"key" json:"key"`

		// Challenge is the outstanding signup challenge token, cleared once
		// verified. At most one per user; a new challenge supersedes the old.
		Challenge string `bson:"challenge,omitempty" json:"-"`
	}
)
