// Package repository wraps the MongoDB collections backing the service.
// Sentinel errors defined here let handlers distinguish failure scenarios
// without inspecting driver errors themselves.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no document. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists and ErrEmailExists signal uniqueness violations on user
// insert. The unique indexes on the collection are the authoritative check;
// the pre-insert lookup only exists to pick the friendlier message. Handlers
// translate both into HTTP 409.
var (
	ErrUsernameExists = errors.New("username already in use")
	ErrEmailExists    = errors.New("email already in use")
)

// ErrNotModified is returned when an update matched a document but changed
// nothing. Security-relevant callers treat this as a loud failure (500)
// rather than silently reporting success.
var ErrNotModified = errors.New("no documents modified")

// ErrInvalidID is returned when a supplied document id is not a well-formed
// ObjectID. Handlers translate this into HTTP 400.
var ErrInvalidID = errors.New("invalid id format")
