package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"

	openAppointmentIndex = "appointments_one_open_per_user"
	userEmailIndex       = "users_email_key"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// translateError maps driver errors onto repository sentinels. Unknown errors
// are returned unchanged.
func translateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case openAppointmentIndex:
			return repository.ErrOpenAppointmentExists
		case userEmailIndex:
			return repository.ErrDuplicateEmail
		}
	case pqForeignKeyViolation:
		return repository.ErrUserNotFound
	}
	return err
}

func statusCodes(statuses []model.Status) pq.Int64Array {
	codes := make(pq.Int64Array, len(statuses))
	for i, s := range statuses {
		codes[i] = int64(s)
	}
	return codes
}
