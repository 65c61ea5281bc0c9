package cli

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/timada-org/todos/internal/todo"
)

const maxMessageWidth = 60

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, okStyle.Render("✔ "+msg))
}

func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, failStyle.Render("✖ "+msg))
}

// Table renders todos as a bordered two column table.
func Table(todos []todo.Todo) string {
	if len(todos) == 0 {
		return mutedStyle.Render("no todos")
	}

	rows := make([][]string, 0, len(todos))
	for _, t := range todos {
		rows = append(rows, []string{t.Title, truncate(t.Message, maxMessageWidth)})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("TITLE", "MESSAGE").
		Rows(rows...).
		String()
}

// Describe turns a store error into a message for humans.
func Describe(err error) string {
	var storeErr *todo.StoreError

	switch {
	case errors.Is(err, todo.ErrDuplicateTitle):
		return "a todo with this title already exists"
	case errors.Is(err, todo.ErrNotFound):
		return "no todo with this title"
	case errors.Is(err, todo.ErrEmptyTitle):
		return "title must not be empty"
	case errors.As(err, &storeErr):
		return fmt.Sprintf("%s failed: %v", storeErr.Op, storeErr.Err)
	default:
		return err.Error()
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)
	return string(r[:n-1]) + "…"
}
