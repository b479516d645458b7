package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/visitor-api/internal/email"
	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository"
	"github.com/jwalitptl/visitor-api/pkg/messaging"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
)

const (
	resultQueued  = "queued"
	resultDropped = "dropped"
	resultSent    = "sent"
	resultFailed  = "failed"
)

// Notifier hands appointment emails off the request path. Implementations
// must return immediately.
type Notifier interface {
	AppointmentBooked(user *model.User, appt *model.Appointment)
	StatusChanged(appt *model.Appointment)
}

type Service struct {
	users   repository.UserRepository
	queue   messaging.JobQueue
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// wg tracks in-flight dispatch goroutines.
	wg sync.WaitGroup
}

func NewService(users repository.UserRepository, queue messaging.JobQueue, timeout time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		users:   users,
		queue:   queue,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

func (s *Service) AppointmentBooked(user *model.User, appt *model.Appointment) {
	u, a := *user, *appt
	s.dispatch(model.NotificationBookingConfirmation, func(context.Context) (*model.EmailJob, error) {
		body, err := email.RenderConfirmation(&u, &a)
		if err != nil {
			return nil, err
		}
		return newJob(model.NotificationBookingConfirmation, &u, &a, email.ConfirmationSubject, body), nil
	})
}

func (s *Service) StatusChanged(appt *model.Appointment) {
	if appt.Status != model.StatusServing && appt.Status != model.StatusCancelled {
		return
	}

	a := *appt
	s.dispatch(model.NotificationStatusChanged, func(ctx context.Context) (*model.EmailJob, error) {
		user := a.User
		if user == nil {
			var err error
			if user, err = s.users.Get(ctx, a.UserID); err != nil {
				return nil, err
			}
		}
		body, ok, err := email.RenderStatusNotice(user, &a)
		if err != nil || !ok {
			return nil, err
		}
		return newJob(model.NotificationStatusChanged, user, &a, email.NotificationSubject, body), nil
	})
}

// dispatch builds and enqueues a job on its own goroutine so the caller
// never waits on the queue.
func (s *Service) dispatch(kind model.NotificationKind, build func(context.Context) (*model.EmailJob, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		job, err := build(ctx)
		if err != nil {
			s.metrics.Notifications.WithLabelValues(string(kind), resultDropped).Inc()
			s.logger.Error().Err(err).Str("kind", string(kind)).Msg("failed to build notification")
			return
		}
		if job == nil {
			return
		}

		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.metrics.Notifications.WithLabelValues(string(kind), resultDropped).Inc()
			s.logger.Error().
				Err(err).
				Str("kind", string(kind)).
				Str("appointment_id", job.AppointmentID.String()).
				Msg("failed to queue notification")
			return
		}
		s.metrics.Notifications.WithLabelValues(string(kind), resultQueued).Inc()
	}()
}

// Wait blocks until every dispatch started so far has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func newJob(kind model.NotificationKind, user *model.User, appt *model.Appointment, subject, body string) *model.EmailJob {
	return &model.EmailJob{
		ID:            uuid.New(),
		Kind:          kind,
		To:            user.Email,
		ToName:        user.FullName(),
		Subject:       subject,
		HTMLBody:      body,
		AppointmentID: appt.ID,
		EnqueuedAt:    time.Now().UTC(),
	}
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) AppointmentBooked(*model.User, *model.Appointment) {}

func (NopNotifier) StatusChanged(*model.Appointment) {}
