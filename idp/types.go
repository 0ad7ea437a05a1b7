package idp

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the provider has no user with the given id.
	ErrNotFound = errors.New("user not found")
	// ErrConflict indicates the provider rejected the request because the
	// username is already taken.
	ErrConflict = errors.New("user already exists")
)

// User is the projection of a provider user record consumed by this service.
// Tenant is the class the account belongs to, stored as a user attribute in
// the provider.
type User struct {
	ID       string
	Username string
	Tenant   string
}

// Client is the identity-provider admin capability consumed by the student
// orchestrator. Implementations must be safe for concurrent use.
type Client interface {
	CreateUser(ctx context.Context, tenant, username, password string) (*User, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	DeleteUser(ctx context.Context, userID string) error
	SetUserPassword(ctx context.Context, userID, password string) error
	ListUsers(ctx context.Context, tenant string) ([]User, error)
	CountUsers(ctx context.Context, tenant string) (int, error)
}
