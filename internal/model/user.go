package model

import "time"

// User is a document in the `users` collection. The bcrypt digest and the
// API key are bearer secrets and must never leak into JSON responses, so
// both carry a `json:"-"` tag; repository list/get projections additionally
// strip them before they ever leave the store.
//
// DeactivatedAt and DeactivationReason are only present while the account
// is inactive; reactivating a user unsets both fields.
type User struct {
	Username           string     `bson:"username" json:"username"`
	Fullname           string     `bson:"fullname" json:"fullname"`
	Email              string     `bson:"email" json:"email"`
	Password           string     `bson:"password,omitempty" json:"-"`
	Admin              bool       `bson:"admin" json:"admin"`
	APIKey             string     `bson:"api_key,omitempty" json:"-"`
	Active             bool       `bson:"active" json:"active"`
	DeactivatedAt      *time.Time `bson:"deactivated_at,omitempty" json:"deactivated_at,omitempty"`
	DeactivationReason string     `bson:"deactivation_reason,omitempty" json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time  `bson:"created_at" json:"created_at"`
	LastUpdatedAt      *time.Time `bson:"last_updated_at,omitempty" json:"last_updated_at,omitempty"`
	PasswordChangedAt  *time.Time `bson:"password_last_changed_at,omitempty" json:"password_last_changed_at,omitempty"`
}
