package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-file-service/internal/domain/user"
	pkgerrors "user-file-service/pkg/errors"
	"user-file-service/pkg/logger"
)

// Usecase implements the business logic for user management operations.
// Each operation loads the full collection from the store and, for
// mutations, writes the full collection back.
//
// By default nothing guards the load-modify-save sequence: concurrent
// mutations may compute the same next id or overwrite each other's writes.
// WithSerializedMutations removes that race within one process.
type Usecase struct {
	store    Store
	log      *zap.Logger
	validate *validator.Validate
	mu       *sync.Mutex // nil unless mutations are serialized
}

var _ Service = (*Usecase)(nil)

// Option configures a Usecase.
type Option func(*Usecase)

// WithSerializedMutations runs every load-modify-save sequence under a
// single process-wide lock.
func WithSerializedMutations() Option {
	return func(uc *Usecase) {
		uc.mu = &sync.Mutex{}
	}
}

// New creates a new instance of Usecase with the provided store and logger.
func New(s Store, log *zap.Logger, opts ...Option) *Usecase {
	uc := &Usecase{store: s, log: log, validate: newValidator()}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// lockMutation acquires the mutation lock when enabled and returns its release func.
func (uc *Usecase) lockMutation() func() {
	if uc.mu == nil {
		return func() {}
	}
	uc.mu.Lock()
	return uc.mu.Unlock
}

func (uc *Usecase) load(ctx context.Context) (domain.Collection, error) {
	users, err := uc.store.Load(ctx)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to load users", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to load users", err)
	}
	if users == nil {
		users = domain.Collection{}
	}
	return users, nil
}

func (uc *Usecase) save(ctx context.Context, users domain.Collection) error {
	if err := uc.store.Save(ctx, users); err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to save users", zap.Int("count", len(users)), zap.Error(err))
		return pkgerrors.NewInternalError("failed to save users", err)
	}
	return nil
}

func notFound(id int64) error {
	return pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
}

// ListUsers returns the whole collection in stored order.
func (uc *Usecase) ListUsers(ctx context.Context, _ ListUsersRequest) (*ListUsersResponse, error) {
	users, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, uc.log).Debug("listing users", zap.Int("count", len(users)))
	return &ListUsersResponse{Users: users}, nil
}

// GetUser retrieves a user by ID.
func (uc *Usecase) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	users, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := users.IndexOf(in.ID)
	if idx < 0 {
		logger.WithContext(ctx, uc.log).Warn("user not found", zap.Int64("id", in.ID))
		return nil, notFound(in.ID)
	}

	return &GetUserResponse{User: users[idx]}, nil
}

// CreateUser validates the payload, assigns the next id and appends the new user.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	input, err := uc.validatePayload(in.Payload)
	if err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	defer uc.lockMutation()()

	users, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}

	id := users.NextID()
	users = append(users, input.toUser(id, in.Payload))

	if err := uc.save(ctx, users); err != nil {
		return nil, err
	}

	log.Info("user created", zap.Int64("id", id))
	return &CreateUserResponse{ID: id}, nil
}

// UpdateUser fully replaces an existing user: fields absent from the payload
// are dropped from the stored record.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	input, err := uc.validatePayload(in.Payload)
	if err != nil {
		log.Warn("validate failed", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	defer uc.lockMutation()()

	users, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := users.IndexOf(in.ID)
	if idx < 0 {
		log.Warn("user not found", zap.Int64("id", in.ID))
		return nil, notFound(in.ID)
	}

	users[idx] = input.toUser(in.ID, in.Payload)

	if err := uc.save(ctx, users); err != nil {
		return nil, err
	}

	log.Info("user updated", zap.Int64("id", in.ID))
	return &UpdateUserResponse{User: users[idx]}, nil
}

// DeleteUser removes a user and returns the removed record.
func (uc *Usecase) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	defer uc.lockMutation()()

	users, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := users.IndexOf(in.ID)
	if idx < 0 {
		log.Warn("user not found", zap.Int64("id", in.ID))
		return nil, notFound(in.ID)
	}

	removed := users[idx]
	if err := uc.save(ctx, users.Remove(idx)); err != nil {
		return nil, err
	}

	log.Info("user deleted", zap.Int64("id", in.ID))
	return &DeleteUserResponse{User: removed}, nil
}
