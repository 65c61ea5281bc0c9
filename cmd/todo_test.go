package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timada-org/todos/internal/todo"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := Execute()

	return out.String(), err
}

func TestFileCommands(t *testing.T) {
	file := filepath.Join(t.TempDir(), "todos.json")

	out, err := run(t, "add", "--file", file, "milk", "two", "bottles")
	require.NoError(t, err)
	assert.Contains(t, out, "added milk")

	out, err = run(t, "ls", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "milk")
	assert.Contains(t, out, "two bottles")

	_, err = run(t, "add", "--file", file, "milk")
	assert.ErrorIs(t, err, todo.ErrDuplicateTitle)

	out, err = run(t, "update", "--file", file, "milk", "one", "carton")
	require.NoError(t, err)
	assert.Contains(t, out, "updated milk")

	out, err = run(t, "ls", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "one carton")

	out, err = run(t, "rm", "--file", file, "milk")
	require.NoError(t, err)
	assert.Contains(t, out, "removed milk")

	out, err = run(t, "rm", "--file", file, "milk")
	assert.ErrorIs(t, err, todo.ErrNotFound)
	assert.Contains(t, out, "no todo with this title")

	out, err = run(t, "ls", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "no todos")
}

func TestDatabaseCommands(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:"+filepath.Join(t.TempDir(), "cli.db"))
	dataFile = ""

	_, err := run(t, "migrate")
	require.NoError(t, err)

	out, err := run(t, "add", "bread")
	require.NoError(t, err)
	assert.Contains(t, out, "added bread")

	out, err = run(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "bread")
}

func TestUsageErrors(t *testing.T) {
	_, err := run(t, "rm")
	assert.Error(t, err)

	_, err = run(t, "ls", "extra")
	assert.Error(t, err)
}
