package todo

import (
	"context"

	"gorm.io/gorm"

	"github.com/timada-org/todos/internal/database"
)

// SQLStore keeps todos in the relational store. The gorm handle and its
// pool are shared by every caller.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, t Todo) error {
	if err := validTitle(t.Title); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Create(&t)
	if res.Error != nil {
		if database.IsUniqueViolation(res.Error) {
			return ErrDuplicateTitle
		}
		return storeError("create", res.Error)
	}

	return checkAffected("create", res.RowsAffected)
}

func (s *SQLStore) List(ctx context.Context) ([]Todo, error) {
	todos := []Todo{}

	if err := s.db.WithContext(ctx).Order("title").Find(&todos).Error; err != nil {
		return nil, storeError("list", err)
	}

	if todos == nil {
		todos = []Todo{}
	}

	return todos, nil
}

// Update replaces the message of the todo named t.Title. The title itself is
// never rewritten.
func (s *SQLStore) Update(ctx context.Context, t Todo) error {
	if err := validTitle(t.Title); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Model(&Todo{}).
		Where("title = ?", t.Title).
		Update("msg", t.Message)
	if res.Error != nil {
		return storeError("update", res.Error)
	}

	return checkAffected("update", res.RowsAffected)
}

func (s *SQLStore) Delete(ctx context.Context, title string) error {
	if err := validTitle(title); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("title = ?", title).
		Delete(&Todo{})
	if res.Error != nil {
		return storeError("delete", res.Error)
	}

	return checkAffected("delete", res.RowsAffected)
}
