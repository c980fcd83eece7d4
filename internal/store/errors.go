package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with the email uniqueness
// constraint.
var ErrConflict = errors.New("email already exists")
