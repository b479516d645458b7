package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository"
)

const appointmentColumns = `
	a.id, a.user_id, a.date, a.status, a.pass_type, a.date_created, a.date_modified`

const appointmentWithUserColumns = appointmentColumns + `,
	u.id AS "user.id", u.first_name AS "user.first_name", u.last_name AS "user.last_name",
	u.email AS "user.email", u.phone_no AS "user.phone_no", u.sponsor AS "user.sponsor",
	u.date_created AS "user.date_created", u.date_modified AS "user.date_modified"`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: NewBaseRepository(db)}
}

// appointmentRow scans an appointment joined with its user.
type appointmentRow struct {
	model.Appointment
	User model.User `db:"user"`
}

func (row *appointmentRow) toModel() *model.Appointment {
	a := row.Appointment
	u := row.User
	a.User = &u
	return &a
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO sf_visitor_management.appointments (
			id, user_id, date, status, pass_type, date_created
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.DateCreated = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.UserID,
		appointment.Date,
		appointment.Status,
		appointment.PassType,
		appointment.DateCreated,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", translateError(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentWithUserColumns + `
		FROM sf_visitor_management.appointments a
		JOIN sf_visitor_management.users u ON u.id = a.user_id
		WHERE a.id = $1
	`
	var row appointmentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", translateError(err))
	}
	return row.toModel(), nil
}

func (r *appointmentRepository) HasOpenAppointment(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sf_visitor_management.appointments
			WHERE user_id = $1 AND status = ANY($2)
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, statusCodes(model.OpenStatuses)); err != nil {
		return false, fmt.Errorf("failed to check open appointments: %w", err)
	}
	return exists, nil
}

// UpdateStatus moves the appointment from one status to another only if it is
// still in from.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status, modifiedAt time.Time) error {
	query := `
		UPDATE sf_visitor_management.appointments
		SET status = $1, date_modified = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, to, modifiedAt, id, from)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", translateError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM sf_visitor_management.appointments WHERE id = $1)`, id)
	if err != nil {
		return fmt.Errorf("failed to check appointment: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStatusChanged
}

func (r *appointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM sf_visitor_management.appointments a
		WHERE a.user_id = $1
		ORDER BY a.date
	`
	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByFilter(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	if len(filter.Statuses) == 0 {
		return nil, errors.New("failed to list appointments: no statuses in filter")
	}

	query := `
		SELECT ` + appointmentWithUserColumns + `
		FROM sf_visitor_management.appointments a
		JOIN sf_visitor_management.users u ON u.id = a.user_id
		WHERE a.date >= $1 AND a.date < $2 AND a.status = ANY($3)
		ORDER BY a.date
	`
	var rows []appointmentRow
	if err := r.db.SelectContext(ctx, &rows, query, filter.From, filter.To, statusCodes(filter.Statuses)); err != nil {
		return nil, fmt.Errorf("failed to filter appointments: %w", err)
	}

	appointments := make([]*model.Appointment, 0, len(rows))
	for i := range rows {
		appointments = append(appointments, rows[i].toModel())
	}
	return appointments, nil
}
