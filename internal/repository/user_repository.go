package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/streamverse/catalog-api/internal/model"
)

// UserRepo persists user accounts in the `users` collection.
type UserRepo struct{ coll *mongo.Collection }

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection("users")}
}

// sensitiveFields is excluded from every read that leaves the admin surface.
var sensitiveFields = bson.M{"_id": 0, "password": 0, "api_key": 0}

// Create inserts a new user. It checks for an existing username/email first
// so the caller gets a precise conflict error; the unique indexes remain the
// source of truth for concurrent registrations, and a duplicate-key error
// from the insert is mapped to the same sentinels.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	var existing struct {
		Username string `bson:"username"`
		Email    string `bson:"email"`
	}
	err := r.coll.FindOne(ctx,
		bson.M{"$or": []bson.M{{"username": u.Username}, {"email": u.Email}}},
		options.FindOne().SetProjection(bson.M{"username": 1, "email": 1, "_id": 0}),
	).Decode(&existing)
	switch {
	case err == nil:
		// username conflict takes precedence when both collide
		if existing.Username == u.Username {
			return ErrUsernameExists
		}
		return ErrEmailExists
	case !errors.Is(err, mongo.ErrNoDocuments):
		return err
	}

	_, err = r.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		if n, cerr := r.coll.CountDocuments(ctx, bson.M{"username": u.Username}); cerr == nil && n > 0 {
			return ErrUsernameExists
		}
		return ErrEmailExists
	}
	return err
}

// GetByUsername fetches a full user record, secrets included. Callers that
// serialize users must go through List/Profile projections or rely on the
// model's json tags.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// Exists reports whether a username is already taken.
func (r *UserRepo) Exists(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username})
	return n > 0, err
}

// List returns a page of users plus filtered/total counts. status is one of
// all|active|inactive; sortBy names a document field.
func (r *UserRepo) List(ctx context.Context, pageNum, pageSize int, status, sortBy string, asc bool) ([]model.User, int64, int64, error) {
	filter := bson.M{}
	switch status {
	case "active":
		filter["active"] = true
	case "inactive":
		filter["active"] = false
	}

	dir := -1
	if asc {
		dir = 1
	}
	opts := options.Find().
		SetProjection(sensitiveFields).
		SetSort(bson.D{{Key: sortBy, Value: dir}}).
		SetSkip(int64((pageNum - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, 0, err
	}
	users := []model.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, 0, err
	}

	filtered, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, 0, err
	}
	return users, filtered, total, nil
}

// UpdateDetails applies a partial $set to a user document. ErrNotFound when
// no document matched, ErrNotModified when the update was a no-op.
func (r *UserRepo) UpdateDetails(ctx context.Context, username string, fields map[string]any) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"username": username}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return ErrNotModified
	}
	return nil
}

// SetActiveStatus transitions the account lifecycle flag. Deactivation
// stamps deactivated_at and the reason; reactivation unsets both.
func (r *UserRepo) SetActiveStatus(ctx context.Context, username string, active bool, reason string) error {
	var update bson.M
	if active {
		update = bson.M{
			"$set":   bson.M{"active": true},
			"$unset": bson.M{"deactivated_at": "", "deactivation_reason": ""},
		}
	} else {
		update = bson.M{
			"$set": bson.M{
				"active":              false,
				"deactivated_at":      time.Now().UTC(),
				"deactivation_reason": reason,
			},
		}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return ErrNotModified
	}
	return nil
}

// ResetPassword stores a new digest and stamps the change timestamps.
func (r *UserRepo) ResetPassword(ctx context.Context, username, digest string) error {
	now := time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"username": username}, bson.M{"$set": bson.M{
		"password":                 digest,
		"password_last_changed_at": now,
		"last_updated_at":          now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return ErrNotModified
	}
	return nil
}

// Delete removes a user document permanently.
func (r *UserRepo) Delete(ctx context.Context, username string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"username": username})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
