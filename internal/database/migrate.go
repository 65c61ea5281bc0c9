package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const LedgerTable = "schema_migrations"

var ErrInvalidMigration = errors.New("invalid migration")

// Migration is one schema step. Up runs inside the transaction that records
// ID in the ledger, so a step is either fully applied and recorded or not at
// all (on stores with transactional DDL).
type Migration struct {
	ID string
	Up func(tx *gorm.DB) error
}

type MigrationError struct {
	ID  string
	Err error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s: %v", e.ID, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

type appliedMigration struct {
	ID        string    `gorm:"primaryKey;size:255"`
	AppliedAt time.Time `gorm:"not null"`
}

func (appliedMigration) TableName() string {
	return LedgerTable
}

// Migrate applies, in order, every migration whose ID is not yet in the
// ledger and returns the IDs it applied. It stops at the first failure.
func Migrate(ctx context.Context, db *gorm.DB, migrations []Migration) ([]string, error) {
	seen := make(map[string]struct{}, len(migrations))
	for _, m := range migrations {
		if m.ID == "" || m.Up == nil {
			return nil, &MigrationError{ID: m.ID, Err: ErrInvalidMigration}
		}

		if _, ok := seen[m.ID]; ok {
			return nil, &MigrationError{ID: m.ID, Err: fmt.Errorf("%w: duplicate id", ErrInvalidMigration)}
		}
		seen[m.ID] = struct{}{}
	}

	db = db.WithContext(ctx)

	if err := db.AutoMigrate(&appliedMigration{}); err != nil {
		return nil, &MigrationError{ID: LedgerTable, Err: err}
	}

	applied, err := Applied(ctx, db)
	if err != nil {
		return nil, &MigrationError{ID: LedgerTable, Err: err}
	}

	done := make(map[string]struct{}, len(applied))
	for _, id := range applied {
		done[id] = struct{}{}
	}

	var ran []string

	for _, m := range migrations {
		if _, ok := done[m.ID]; ok {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}

			return tx.Create(&appliedMigration{ID: m.ID, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return ran, &MigrationError{ID: m.ID, Err: err}
		}

		ran = append(ran, m.ID)
	}

	return ran, nil
}

// Applied lists the ledger in application order.
func Applied(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string

	err := db.WithContext(ctx).
		Model(&appliedMigration{}).
		Order("applied_at, id").
		Pluck("id", &ids).Error

	return ids, err
}
