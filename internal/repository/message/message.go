package message

import (
	"context"
	"time"

	"pgprelay/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type (
	MessageRepo struct {
		collection *mongo.Collection
	}
)

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{
		collection: db.Collection("messages"),
	}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) (primitive.ObjectID, error) {
	res, err := r.collection.InsertOne(ctx, msg)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id := res.InsertedID.(primitive.ObjectID)
	msg.ID = id
	return id, nil
}

// GetByToken finds the message currently holding the token in the given
// state. Tokens are globally unique so at most one document matches.
func (r *MessageRepo) GetByToken(ctx context.Context, token string, state model.MessageState) (*model.Message, error) {
	filter := bson.M{
		"token": token,
		"state": state,
	}

	var msg model.Message
	err := r.collection.FindOne(ctx, filter).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &msg, nil
}

func (r *MessageRepo) FindDeliverable(ctx context.Context, receiver string) ([]*model.Message, error) {
	filter := bson.M{
		"receiver": receiver,
		"state":    model.StateDeliverable,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []*model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MessageRepo) UpdateToken(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{"$set": bson.M{"token": token}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *MessageRepo) SetState(ctx context.Context, id primitive.ObjectID, state model.MessageState, at time.Time) error {
	set := bson.M{"state": state}
	if state == model.StateCollected {
		set["collectedAt"] = at
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (r *MessageRepo) TokenExists(ctx context.Context, token string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"token": token})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteCollectedBefore removes collected messages whose collection time is
// at or before the cutoff. Returns the number removed.
func (r *MessageRepo) DeleteCollectedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"state":       model.StateCollected,
		"collectedAt": bson.M{"$lte": cutoff},
	}

	res, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
