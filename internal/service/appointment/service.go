package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository"
	"github.com/jwalitptl/visitor-api/internal/service/notification"
	apperrors "github.com/jwalitptl/visitor-api/pkg/errors"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
)

const (
	MsgOpenAppointmentExists = "An existing appointment exists.  Only one open appointment is allowed at any given time."
	MsgStatusNotSet          = "Invalid status.  Cannot update the status to NotSet"
	MsgStatusInvalid         = "Invalid status."
	MsgAppointmentComplete   = "Invalid status.  This appointment is complete."
	MsgStatusChanged         = "The appointment status was changed by another request.  Reload and try again."
)

type Service struct {
	repo     repository.AppointmentRepository
	users    repository.UserRepository
	notifier notification.Notifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	users repository.UserRepository,
	notifier notification.Notifier,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateAppointment books a Scheduled appointment for an existing user. A
// user may hold only one open appointment at a time.
func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperrors.Validation("userId is required")
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, apperrors.Validation("userId must be a valid id")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, userNotFound(userID, err)
		}
		return nil, apperrors.Internal(err)
	}

	if strings.TrimSpace(req.Date) == "" {
		return nil, apperrors.Validation("date is required")
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.Validation("date must be a valid date and time")
	}

	open, err := s.repo.HasOpenAppointment(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if open {
		return nil, apperrors.Conflict(MsgOpenAppointmentExists, nil)
	}

	appt := &model.Appointment{
		Base:     model.Base{ID: uuid.New()},
		UserID:   userID,
		Date:     date,
		Status:   model.StatusScheduled,
		PassType: model.PassTypeFromService(req.Service),
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		switch {
		case errors.Is(err, repository.ErrOpenAppointmentExists):
			return nil, apperrors.Conflict(MsgOpenAppointmentExists, err)
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, userNotFound(userID, err)
		default:
			return nil, apperrors.Internal(err)
		}
	}

	s.metrics.AppointmentsCreated.WithLabelValues(appt.PassType.String()).Inc()
	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("user_id", userID.String()).
		Str("pass_type", appt.PassType.String()).
		Time("date", appt.Date).
		Msg("appointment created")

	s.notifier.AppointmentBooked(user, appt)

	appt.User = user
	return appt, nil
}

// UpdateStatus applies one step of the appointment lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next model.Status) error {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return err
	}

	if err := validateTransition(appt.Status, next); err != nil {
		s.metrics.StatusRejections.WithLabelValues(statusLabel(appt.Status), statusLabel(next)).Inc()
		return err
	}

	if err := s.repo.UpdateStatus(ctx, id, appt.Status, next, s.now()); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return appointmentNotFound(id, err)
		case errors.Is(err, repository.ErrStatusChanged):
			return apperrors.Conflict(MsgStatusChanged, err)
		default:
			return apperrors.Internal(err)
		}
	}

	s.metrics.StatusTransitions.WithLabelValues(statusLabel(appt.Status), statusLabel(next)).Inc()
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", appt.Status.String()).
		Str("to", next.String()).
		Msg("appointment status updated")

	appt.Status = next
	s.notifier.StatusChanged(appt)
	return nil
}

// validateTransition checks next against the lifecycle table for current.
func validateTransition(current, next model.Status) error {
	if next == model.StatusNotSet {
		return apperrors.Validation(MsgStatusNotSet)
	}
	if !next.IsValid() {
		return apperrors.Validation(MsgStatusInvalid)
	}
	if current.IsTerminal() {
		return apperrors.Validation(MsgAppointmentComplete)
	}
	if current.CanTransitionTo(next) {
		return nil
	}

	allowed := current.AllowedNext()
	if len(allowed) != 2 {
		return apperrors.Validation(MsgStatusInvalid)
	}
	return apperrors.Validation(fmt.Sprintf(
		"Invalid status.  The status can only be updated to %s or %s", allowed[0], allowed[1]))
}

// statusLabel keeps metric label values to a fixed set. Codes outside the
// lifecycle come from callers and all share one label.
func statusLabel(st model.Status) string {
	if st != model.StatusNotSet && !st.IsValid() {
		return "invalid"
	}
	return st.String()
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.getAppointment(ctx, id)
}

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appointmentNotFound(id, err)
		}
		return nil, apperrors.Internal(err)
	}
	return appt, nil
}

// ListAppointments returns a user's appointments when q.UserID is set,
// otherwise the appointments in the UTC day range starting at q.StartDate
// whose status is in q.Statuses.
func (s *Service) ListAppointments(ctx context.Context, q model.AppointmentQuery) ([]*model.Appointment, error) {
	if q.UserID != nil {
		appts, err := s.repo.ListByUser(ctx, *q.UserID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		return appts, nil
	}

	filter, err := s.resolveFilter(q)
	if err != nil {
		return nil, err
	}

	appts, err := s.repo.ListByFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appts, nil
}

func (s *Service) resolveFilter(q model.AppointmentQuery) (model.AppointmentFilter, error) {
	if strings.TrimSpace(q.StartDate) == "" {
		return model.AppointmentFilter{}, apperrors.Validation("startDate is required")
	}
	start, err := model.ParseDate(q.StartDate)
	if err != nil {
		return model.AppointmentFilter{}, apperrors.Validation("startDate must be a valid date")
	}

	var end time.Time
	if strings.TrimSpace(q.EndDate) != "" {
		if end, err = model.ParseDate(q.EndDate); err != nil {
			return model.AppointmentFilter{}, apperrors.Validation("endDate must be a valid date")
		}
		if end.Before(start) {
			return model.AppointmentFilter{}, apperrors.Validation("endDate must not be before startDate")
		}
	}

	from, _, to := model.DayRange(start, end)
	return model.AppointmentFilter{
		From:     from,
		To:       to,
		Statuses: s.resolveStatuses(q.Statuses),
	}, nil
}

// resolveStatuses parses raw filter values, dropping invalid ones. An empty
// result falls back to the open statuses.
func (s *Service) resolveStatuses(raw []string) []model.Status {
	seen := make(map[model.Status]bool)
	var statuses []model.Status

	for _, r := range raw {
		st, err := model.ParseStatus(r)
		if err != nil || !st.IsValid() {
			s.logger.Warn().Str("status", r).Msg("ignoring invalid status filter")
			continue
		}
		if !seen[st] {
			seen[st] = true
			statuses = append(statuses, st)
		}
	}

	if len(statuses) == 0 {
		return append([]model.Status(nil), model.OpenStatuses...)
	}
	return statuses
}

func appointmentNotFound(id uuid.UUID, err error) error {
	return apperrors.NotFound(fmt.Sprintf("Unable to find an appointment with the ID %s", id), err)
}

func userNotFound(id uuid.UUID, err error) error {
	return apperrors.NotFound(fmt.Sprintf("Unable to find a user with the ID %s", id), err)
}
