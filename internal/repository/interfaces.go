package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitor-api/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrOpenAppointmentExists is returned when an insert would give a user a
	// second appointment in an open status.
	ErrOpenAppointmentExists = errors.New("user already has an open appointment")
	ErrDuplicateEmail        = errors.New("email already in use")
	ErrUserNotFound          = errors.New("referenced user does not exist")
	// ErrStatusChanged is returned by UpdateStatus when the stored status no
	// longer matches the expected current status.
	ErrStatusChanged = errors.New("appointment status changed concurrently")
)

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		HasOpenAppointment(ctx context.Context, userID uuid.UUID) (bool, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status, modifiedAt time.Time) error
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error)
		ListByFilter(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error)
	}

	UserRepository interface {
		// Upsert inserts user or, when the email is already registered
		// (case-insensitively), updates the existing row's mutable fields.
		// user is overwritten with the stored row.
		Upsert(ctx context.Context, user *model.User) (created bool, err error)
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		List(ctx context.Context) ([]*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Count(ctx context.Context) (int, error)
	}

	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)
