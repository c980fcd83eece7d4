package services

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so login failures never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDeactivated is returned for correct credentials on a
	// deactivated account.
	ErrAccountDeactivated = errors.New("account has been deactivated")

	// ErrForbidden marks an operation the actor's role does not permit.
	ErrForbidden = errors.New("insufficient permission")

	// ErrInvalidRole marks a role outside the assignable set.
	ErrInvalidRole = errors.New("role must be either moderator or admin")

	// ErrEmptyPatch guards updates that carry no fields. Handler-side
	// validation rejects these first; this is the defensive backstop.
	ErrEmptyPatch = errors.New("at least one field must be provided for update")
)
