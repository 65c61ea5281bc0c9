package todo

import (
	"context"
	"strings"
)

// Store is implemented by SQLStore and FileStore. Mutations fail with
// ErrDuplicateTitle or ErrNotFound for the expected conflicts, and with a
// *StoreError for everything else.
type Store interface {
	Create(ctx context.Context, t Todo) error
	List(ctx context.Context) ([]Todo, error)
	Update(ctx context.Context, t Todo) error
	Delete(ctx context.Context, title string) error
}

func validTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	return nil
}
