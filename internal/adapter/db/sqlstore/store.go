package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "user-file-service/internal/domain/user"
	"user-file-service/pkg/logger"
)

// insertBatchSize bounds the number of rows per INSERT when rewriting the table.
const insertBatchSize = 100

// Store implements the user collection store on a relational database via GORM.
// The table mirrors the collection: Save replaces every row in one transaction
// and Load returns rows in collection order.
type Store struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// New creates a new instance of Store.
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
// Document is authoritative on load; the typed columns mirror it for queries.
type UserSchema struct {
	Position   int     `gorm:"primaryKey;autoIncrement:false"` // Position in the collection
	ID         *int64  `gorm:"uniqueIndex"`                    // NULL when the record has no usable id
	FirstName  string  // Empty when absent or not a string
	SecondName string  // Empty when absent or not a string
	Age        int     // Zero when absent or not an integer
	City       *string // NULL when the user has no city
	Document   string  `gorm:"type:text;not null"` // The record exactly as stored
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Load reads every row ordered by collection position.
func (s *Store) Load(ctx context.Context) (domain.Collection, error) {
	var models []UserSchema
	if err := s.db.WithContext(ctx).Order("position").Find(&models).Error; err != nil {
		logger.WithContext(ctx, s.log).Error("failed to load users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	users := make(domain.Collection, len(models))
	for i, m := range models {
		u, err := toDomain(m)
		if err != nil {
			logger.WithContext(ctx, s.log).Error("failed to decode stored user", zap.Int("position", m.Position), zap.Error(err))
			return nil, fmt.Errorf("failed to decode user at position %d: %w", m.Position, err)
		}
		users[i] = u
	}

	return users, nil
}

// Save replaces the table contents with users.
func (s *Store) Save(ctx context.Context, users domain.Collection) error {
	models := make([]UserSchema, len(users))
	for i, u := range users {
		m, err := toSchema(u, i)
		if err != nil {
			return fmt.Errorf("failed to encode user at position %d: %w", i, err)
		}
		models[i] = m
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&UserSchema{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(models, insertBatchSize).Error
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to save users to db", zap.Int("count", len(users)), zap.Error(err))
		return fmt.Errorf("failed to save users: %w", err)
	}

	logger.WithContext(ctx, s.log).Debug("users saved to db", zap.Int("count", len(users)))
	return nil
}

func toSchema(u domain.User, position int) (UserSchema, error) {
	doc, err := json.Marshal(u)
	if err != nil {
		return UserSchema{}, err
	}
	m := UserSchema{
		Position:   position,
		FirstName:  u.FirstName,
		SecondName: u.SecondName,
		Age:        u.Age,
		City:       u.City,
		Document:   string(doc),
	}
	if u.HasID() {
		id := u.ID
		m.ID = &id
	}
	return m, nil
}

func toDomain(m UserSchema) (domain.User, error) {
	var u domain.User
	if err := json.Unmarshal([]byte(m.Document), &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
