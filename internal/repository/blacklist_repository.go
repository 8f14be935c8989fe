package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/streamverse/catalog-api/internal/model"
)

// BlacklistRepo is the token-revocation ledger over the `blacklist`
// collection. Entries are append-only; pruning of long-expired entries is an
// explicit maintenance operation, never an implicit side effect.
type BlacklistRepo struct{ coll *mongo.Collection }

func NewBlacklistRepo(db *mongo.Database) *BlacklistRepo {
	return &BlacklistRepo{coll: db.Collection("blacklist")}
}

// IsRevoked reports whether a token id appears in the ledger.
func (r *BlacklistRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"jti": jti}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert appends a revocation entry. A duplicate jti from a concurrent
// logout is treated as success since the outcome is identical.
func (r *BlacklistRepo) Insert(ctx context.Context, e model.RevocationEntry) error {
	_, err := r.coll.InsertOne(ctx, e)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// PruneExpired deletes entries whose token has already passed its own
// expiry; such tokens can never validate again, so the ledger entry is dead
// weight. Returns the number of removed entries.
func (r *BlacklistRepo) PruneExpired(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
