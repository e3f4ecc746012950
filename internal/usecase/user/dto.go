package user

import (
	"encoding/json"

	domain "user-file-service/internal/domain/user"
)

// Payload is a candidate user body: field name to raw JSON value.
type Payload map[string]json.RawMessage

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Payload Payload
}

// CreateUserResponse carries the id assigned to the new user.
type CreateUserResponse struct {
	ID int64
}

// UpdateUserRequest replaces every field of user ID with Payload.
type UpdateUserRequest struct {
	ID      int64
	Payload Payload
}

// UpdateUserResponse represents the response payload after updating a user.
type UpdateUserResponse struct {
	User domain.User
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID int64
}

// DeleteUserResponse carries the removed user.
type DeleteUserResponse struct {
	User domain.User
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID int64
}

// GetUserResponse represents the response payload for user details.
type GetUserResponse struct {
	User domain.User
}

// ListUsersRequest represents the request for listing users. The listing
// has no filters or pagination.
type ListUsersRequest struct{}

// ListUsersResponse represents the response payload for user listing.
type ListUsersResponse struct {
	Users domain.Collection
}
