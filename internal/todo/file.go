package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps todos in a single human-readable JSON file. The mutex
// serializes callers inside one process only; it is meant for the local CLI.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Create(ctx context.Context, t Todo) error {
	if err := validTitle(t.Title); err != nil {
		return err
	}

	return s.mutate(ctx, "create", func(todos []Todo) ([]Todo, error) {
		if indexOf(todos, t.Title) >= 0 {
			return nil, ErrDuplicateTitle
		}
		return append(todos, t), nil
	})
}

func (s *FileStore) List(ctx context.Context) ([]Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError("list", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load()
	if err != nil {
		return nil, storeError("list", err)
	}

	sort.SliceStable(todos, func(i, j int) bool { return todos[i].Title < todos[j].Title })

	return todos, nil
}

func (s *FileStore) Update(ctx context.Context, t Todo) error {
	if err := validTitle(t.Title); err != nil {
		return err
	}

	return s.mutate(ctx, "update", func(todos []Todo) ([]Todo, error) {
		i := indexOf(todos, t.Title)
		if i < 0 {
			return nil, ErrNotFound
		}
		todos[i].Message = t.Message
		return todos, nil
	})
}

func (s *FileStore) Delete(ctx context.Context, title string) error {
	if err := validTitle(title); err != nil {
		return err
	}

	return s.mutate(ctx, "delete", func(todos []Todo) ([]Todo, error) {
		i := indexOf(todos, title)
		if i < 0 {
			return nil, ErrNotFound
		}
		return append(todos[:i], todos[i+1:]...), nil
	})
}

func (s *FileStore) mutate(ctx context.Context, op string, fn func([]Todo) ([]Todo, error)) error {
	if err := ctx.Err(); err != nil {
		return storeError(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load()
	if err != nil {
		return storeError(op, err)
	}

	todos, err = fn(todos)
	if err != nil {
		return err
	}

	if err := s.save(todos); err != nil {
		return storeError(op, err)
	}

	return nil
}

func (s *FileStore) load() ([]Todo, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Todo{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	todos := []Todo{}
	if len(b) == 0 {
		return todos, nil
	}

	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	return todos, nil
}

// save writes through a temp file so a crash never leaves a truncated store.
func (s *FileStore) save(todos []Todo) error {
	b, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func indexOf(todos []Todo, title string) int {
	for i, t := range todos {
		if t.Title == title {
			return i
		}
	}
	return -1
}
