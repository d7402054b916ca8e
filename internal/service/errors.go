// Package service provides the in-memory business logic of the stand-in
// backend: users, conversations, messages, invitations and notifications.
package service

import (
	"errors"
)

// Error kinds. Handlers map them to HTTP status codes.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid request")
)

// Error carries a user-facing detail next to its kind.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string { return e.Kind.Error() + ": " + e.Detail }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(detail string) error  { return &Error{Kind: ErrNotFound, Detail: detail} }
func forbidden(detail string) error { return &Error{Kind: ErrForbidden, Detail: detail} }
func invalid(detail string) error   { return &Error{Kind: ErrInvalid, Detail: detail} }

// Detail returns the user-facing text of err, or fallback.
func Detail(err error, fallback string) string {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Detail != "" {
		return svcErr.Detail
	}
	return fallback
}
