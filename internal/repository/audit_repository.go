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

// AuditRepo is the append-only trail of admin actions in `audit_logs`.
type AuditRepo struct{ coll *mongo.Collection }

func NewAuditRepo(db *mongo.Database) *AuditRepo {
	return &AuditRepo{coll: db.Collection("audit_logs")}
}

// ActionCount is one action tallied for an admin in the stats summary.
type ActionCount struct {
	Action string `bson:"action" json:"action"`
	Count  int64  `bson:"count" json:"count"`
}

// AdminActivity aggregates all actions performed by a single admin.
type AdminActivity struct {
	Admin        string        `bson:"_id" json:"admin"`
	Actions      []ActionCount `bson:"actions" json:"actions"`
	TotalActions int64         `bson:"total_actions" json:"total_actions"`
}

// Insert appends an audit entry.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) error {
	_, err := r.coll.InsertOne(ctx, e)
	return err
}

// List returns a page of entries, newest first, plus the total count.
func (r *AuditRepo) List(ctx context.Context, pageNum, pageSize int) ([]model.AuditEntry, int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64((pageNum - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	logs := []model.AuditEntry{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// GetByID fetches a single entry by its hex ObjectID.
func (r *AuditRepo) GetByID(ctx context.Context, id string) (model.AuditEntry, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return model.AuditEntry{}, ErrInvalidID
	}
	var e model.AuditEntry
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.AuditEntry{}, ErrNotFound
	}
	return e, err
}

// Stats counts actions per admin and orders admins by total activity.
func (r *AuditRepo) Stats(ctx context.Context) ([]AdminActivity, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "admin", Value: "$admin"},
				{Key: "action", Value: "$action"},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$_id.admin"},
			{Key: "actions", Value: bson.D{{Key: "$push", Value: bson.D{
				{Key: "action", Value: "$_id.action"},
				{Key: "count", Value: "$count"},
			}}}},
			{Key: "total_actions", Value: bson.D{{Key: "$sum", Value: "$count"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_actions", Value: -1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	summary := []AdminActivity{}
	if err := cur.All(ctx, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// Prune deletes entries older than the cutoff and returns the count removed.
func (r *AuditRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
