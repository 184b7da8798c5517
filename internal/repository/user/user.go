package user

import (
	"context"
	"pgprelay/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type (
	UserRepo struct {
		collection *mongo.Collection
	}
)

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{
		collection: db.Collection("users"),
	}
}

func (r *UserRepo) GetByName(ctx context.Context, name string) (*model.User, error) {
	filter := bson.M{
		"username": name,
	}

	var user model.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *UserRepo) GetByChallenge(ctx context.Context, challenge string) (*model.User, error) {
	filter := bson.M{
		"challenge": challenge,
	}

	var user model.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) (primitive.ObjectID, error) {
	res, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id := res.InsertedID.(primitive.ObjectID)
	user.ID = id
	return id, nil
}

// UpdateChallenge replaces the user's pending challenge. An empty challenge
// unsets the field (the challenge was resolved).
func (r *UserRepo) UpdateChallenge(ctx context.Context, id primitive.ObjectID, challenge string) error {
	var update bson.M
	if challenge == "" {
		update = bson.M{"$unset": bson.M{"challenge": ""}}
	} else {
		update = bson.M{"$set": bson.M{"challenge": challenge}}
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *UserRepo) ChallengeExists(ctx context.Context, challenge string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"challenge": challenge})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
