package todo

import (
	"gorm.io/gorm"

	"github.com/timada-org/todos/internal/database"
)

// Migrations is append-only: never edit or reorder a released step.
var Migrations = []database.Migration{
	{
		ID: "0001_create_todos",
		Up: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE TABLE IF NOT EXISTS todos (
	title TEXT NOT NULL,
	msg TEXT NOT NULL
)`).Error
		},
	},
	{
		ID: "0002_todos_unique_title",
		Up: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_todos_title ON todos (title)`).Error
		},
	},
}
