package todo_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/timada-org/todos/internal/database"
	"github.com/timada-org/todos/internal/todo"
)

func newSQLStore(t *testing.T) (*todo.SQLStore, *gorm.DB) {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		URL:            "sqlite:" + filepath.Join(t.TempDir(), "todos.db"),
		MaxConnections: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	_, err = database.Migrate(ctx, db, todo.Migrations)
	require.NoError(t, err)

	return todo.NewSQLStore(db), db
}

func stores(t *testing.T) map[string]func(t *testing.T) todo.Store {
	return map[string]func(t *testing.T) todo.Store{
		"sql": func(t *testing.T) todo.Store {
			s, _ := newSQLStore(t)
			return s
		},
		"file": func(t *testing.T) todo.Store {
			return todo.NewFileStore(filepath.Join(t.TempDir(), "todos.json"))
		},
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range stores(t) {
		newStore := newStore

		t.Run(name, func(t *testing.T) {
			t.Run("empty list", func(t *testing.T) {
				s := newStore(t)

				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.NotNil(t, todos)
				assert.Empty(t, todos)
			})

			t.Run("create is visible", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Create(ctx, todo.Todo{Title: "a", Message: "x"}))

				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []todo.Todo{{Title: "a", Message: "x"}}, todos)
			})

			t.Run("duplicate title", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Create(ctx, todo.Todo{Title: "a", Message: "x"}))
				err := s.Create(ctx, todo.Todo{Title: "a", Message: "y"})
				assert.ErrorIs(t, err, todo.ErrDuplicateTitle)

				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []todo.Todo{{Title: "a", Message: "x"}}, todos)
			})

			t.Run("empty title", func(t *testing.T) {
				s := newStore(t)

				assert.ErrorIs(t, s.Create(ctx, todo.Todo{Title: " ", Message: "x"}), todo.ErrEmptyTitle)
				assert.ErrorIs(t, s.Update(ctx, todo.Todo{Message: "x"}), todo.ErrEmptyTitle)
				assert.ErrorIs(t, s.Delete(ctx, ""), todo.ErrEmptyTitle)
			})

			t.Run("update changes only the message", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Create(ctx, todo.Todo{Title: "a", Message: "x"}))
				require.NoError(t, s.Create(ctx, todo.Todo{Title: "b", Message: "z"}))
				require.NoError(t, s.Update(ctx, todo.Todo{Title: "a", Message: "y"}))

				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []todo.Todo{{Title: "a", Message: "y"}, {Title: "b", Message: "z"}}, todos)
			})

			t.Run("update with an unchanged message", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Create(ctx, todo.Todo{Title: "a", Message: "x"}))
				require.NoError(t, s.Update(ctx, todo.Todo{Title: "a", Message: "x"}))
			})

			t.Run("update absent title", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Create(ctx, todo.Todo{Title: "a", Message: "x"}))
				assert.ErrorIs(t, s.Update(ctx, todo.Todo{Title: "b", Message: "y"}), todo.ErrNotFound)

				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []todo.Todo{{Title: "a", Message: "x"}}, todos)
			})

			t.Run("delete removes exactly one row", func(t *testing.T) {
				s := newStore(t)

				for _, title := range []string{"a", "b", "c"} {
					require.NoError(t, s.Create(ctx, todo.Todo{Title: title, Message: title}))
				}

				require.NoError(t, s.Delete(ctx, "b"))

				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []todo.Todo{{Title: "a", Message: "a"}, {Title: "c", Message: "c"}}, todos)
			})

			t.Run("delete absent title", func(t *testing.T) {
				s := newStore(t)

				assert.ErrorIs(t, s.Delete(ctx, "a"), todo.ErrNotFound)
			})

			t.Run("creates minus deletes", func(t *testing.T) {
				s := newStore(t)

				for i := 0; i < 10; i++ {
					require.NoError(t, s.Create(ctx, todo.Todo{Title: fmt.Sprintf("t%02d", i)}))
				}
				for i := 0; i < 4; i++ {
					require.NoError(t, s.Delete(ctx, fmt.Sprintf("t%02d", i*2)))
				}

				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.Len(t, todos, 6)
			})

			t.Run("scenario", func(t *testing.T) {
				s := newStore(t)

				require.NoError(t, s.Create(ctx, todo.Todo{Title: "a", Message: "x"}))
				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []todo.Todo{{Title: "a", Message: "x"}}, todos)

				require.NoError(t, s.Update(ctx, todo.Todo{Title: "a", Message: "y"}))
				todos, err = s.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []todo.Todo{{Title: "a", Message: "y"}}, todos)

				require.NoError(t, s.Delete(ctx, "a"))
				todos, err = s.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, todos)

				assert.ErrorIs(t, s.Delete(ctx, "a"), todo.ErrNotFound)
			})

			t.Run("concurrent creates", func(t *testing.T) {
				s := newStore(t)

				const n = 20
				var wg sync.WaitGroup
				errs := make(chan error, n)

				for i := 0; i < n; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						errs <- s.Create(ctx, todo.Todo{Title: fmt.Sprintf("distinct-%d", i)})
					}(i)
				}
				wg.Wait()
				close(errs)

				for err := range errs {
					require.NoError(t, err)
				}

				todos, err := s.List(ctx)
				require.NoError(t, err)
				assert.Len(t, todos, n)
			})

			t.Run("concurrent creates with the same title", func(t *testing.T) {
				s := newStore(t)

				const n = 20
				var wg sync.WaitGroup
				errs := make(chan error, n)

				for i := 0; i < n; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						errs <- s.Create(ctx, todo.Todo{Title: "same", Message: fmt.Sprint(i)})
					}(i)
				}
				wg.Wait()
				close(errs)

				var ok, dup int
				for err := range errs {
					switch {
					case err == nil:
						ok++
					case errors.Is(err, todo.ErrDuplicateTitle):
						dup++
					default:
						t.Fatalf("unexpected error: %v", err)
					}
				}

				assert.Equal(t, 1, ok)
				assert.Equal(t, n-1, dup)
			})

			t.Run("cancelled context", func(t *testing.T) {
				s := newStore(t)

				cctx, cancel := context.WithCancel(ctx)
				cancel()

				err := s.Create(cctx, todo.Todo{Title: "a"})
				var storeErr *todo.StoreError
				require.True(t, errors.As(err, &storeErr))
				assert.ErrorIs(t, err, context.Canceled)
			})
		})
	}
}

func TestSQLStoreAffectedRows(t *testing.T) {
	ctx := context.Background()
	s, db := newSQLStore(t)

	// Drop the unique index to simulate a store that lets two rows share a
	// title: mutations must then report the anomaly instead of succeeding.
	require.NoError(t, db.Exec(`DROP INDEX idx_todos_title`).Error)
	require.NoError(t, db.Exec(`INSERT INTO todos (title, msg) VALUES ('a', 'x'), ('a', 'y')`).Error)

	err := s.Update(ctx, todo.Todo{Title: "a", Message: "z"})
	var storeErr *todo.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "update", storeErr.Op)
	assert.ErrorIs(t, err, todo.ErrUnexpectedRowCount)

	err = s.Delete(ctx, "a")
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "delete", storeErr.Op)
	assert.ErrorIs(t, err, todo.ErrUnexpectedRowCount)
}

func TestSQLStoreWithoutSchema(t *testing.T) {
	ctx := context.Background()

	db, err := database.Open(ctx, database.Options{
		URL: "sqlite:" + filepath.Join(t.TempDir(), "empty.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	s := todo.NewSQLStore(db)

	_, err = s.List(ctx)
	var storeErr *todo.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "list", storeErr.Op)
}
