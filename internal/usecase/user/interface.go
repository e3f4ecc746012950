package user

import (
	"context"

	domain "user-file-service/internal/domain/user"
)

// Service defines the user business logic operations consumed by transports.
type Service interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error)
	GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error)
	ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error)
}

// Store is the persistence adapter for the user collection. Implementations
// read the whole collection on Load and rewrite it on Save; they hold no
// state between calls that the usecase relies on.
type Store interface {
	Load(ctx context.Context) (domain.Collection, error)
	Save(ctx context.Context, users domain.Collection) error
}
