package model

import "time"

// RevocationEntry is a row in the `blacklist` collection. A token whose jti
// appears here must never authenticate again, regardless of its remaining
// lifetime. ExpiresAt is copied from the token at revocation time so the
// ledger can be pruned once the token would have expired anyway.
type RevocationEntry struct {
	JTI           string    `bson:"jti" json:"jti"`
	Username      string    `bson:"username" json:"username"`
	BlacklistedAt time.Time `bson:"blacklisted_at" json:"blacklisted_at"`
	ExpiresAt     time.Time `bson:"expires_at" json:"expires_at"`
}
