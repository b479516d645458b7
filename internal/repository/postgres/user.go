package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository"
)

const userColumns = `id, first_name, last_name, email, phone_no, sponsor, date_created, date_modified`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository(db)}
}

type upsertRow struct {
	model.User
	Inserted bool `db:"inserted"`
}

func (r *userRepository) Upsert(ctx context.Context, user *model.User) (bool, error) {
	query := `
		INSERT INTO sf_visitor_management.users AS u (
			id, first_name, last_name, email, phone_no, sponsor, date_created
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (lower(email)) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone_no = EXCLUDED.phone_no,
			sponsor = COALESCE(EXCLUDED.sponsor, u.sponsor),
			date_modified = $8
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted
	`
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()

	var row upsertRow
	err := r.db.GetContext(ctx, &row, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PhoneNo,
		user.Sponsor,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert user: %w", translateError(err))
	}

	*user = row.User
	return row.Inserted, nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM sf_visitor_management.users WHERE id = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", translateError(err))
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM sf_visitor_management.users ORDER BY last_name, first_name`

	users := []*model.User{}
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE sf_visitor_management.users
		SET first_name = $1, last_name = $2, email = $3, phone_no = $4,
			sponsor = COALESCE($5, sponsor), date_modified = $6
		WHERE id = $7
		RETURNING ` + userColumns
	user.Touch()

	var updated model.User
	err := r.db.GetContext(ctx, &updated, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PhoneNo,
		user.Sponsor,
		user.DateModified,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", translateError(err))
	}

	*user = updated
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM sf_visitor_management.users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
