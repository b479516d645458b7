// Package seed loads the demo visitors and today's appointments into an
// empty store.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository"
)

type sampleAppointment struct {
	hour     int
	status   model.Status
	passType model.PassType
}

var sampleUsers = []model.User{
	{FirstName: "John", LastName: "Doe", Email: "john.doe@example.com", PhoneNo: "555-123-4567"},
	{FirstName: "Jane", LastName: "Smith", Email: "jane.smith@example.com", PhoneNo: "555-987-6543"},
	{FirstName: "Robert", LastName: "Johnson", Email: "robert.j@example.com", PhoneNo: "555-456-7890"},
	{FirstName: "Michael", LastName: "Williams", Email: "michael.w@example.com", PhoneNo: "555-222-3333"},
	{FirstName: "Sarah", LastName: "Davis", Email: "sarah.d@example.com", PhoneNo: "555-444-5555"},
}

// sampleAppointments[i] belongs to sampleUsers[i].
var sampleAppointments = []sampleAppointment{
	{9, model.StatusScheduled, model.PassTypeVisitorPass},
	{10, model.StatusCheckedIn, model.PassTypeGolfPass},
	{11, model.StatusServing, model.PassTypeVetCard},
	{13, model.StatusCheckedIn, model.PassTypeVisitorPass},
	{14, model.StatusScheduled, model.PassTypeContractor},
}

type Seeder struct {
	users        repository.UserRepository
	appointments repository.AppointmentRepository
	logger       zerolog.Logger
	now          func() time.Time
}

func NewSeeder(users repository.UserRepository, appointments repository.AppointmentRepository, logger zerolog.Logger) *Seeder {
	return &Seeder{
		users:        users,
		appointments: appointments,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run inserts the sample data unless users already exist. It reports whether
// anything was written.
func (s *Seeder) Run(ctx context.Context) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		s.logger.Debug().Int("users", n).Msg("store not empty, skipping seed")
		return false, nil
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for i := range sampleUsers {
		u := sampleUsers[i]
		if _, err := s.users.Upsert(ctx, &u); err != nil {
			return false, fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}

		sa := sampleAppointments[i]
		appt := &model.Appointment{
			UserID:   u.ID,
			Date:     today.Add(time.Duration(sa.hour) * time.Hour),
			Status:   sa.status,
			PassType: sa.passType,
		}
		if err := s.appointments.Create(ctx, appt); err != nil {
			return false, fmt.Errorf("failed to seed appointment for %s: %w", u.Email, err)
		}
	}

	s.logger.Info().
		Int("users", len(sampleUsers)).
		Int("appointments", len(sampleAppointments)).
		Msg("sample data seeded")
	return true, nil
}
