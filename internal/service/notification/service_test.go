package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visitor-api/internal/email"
	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository/memory"
	"github.com/jwalitptl/visitor-api/pkg/messaging"
	"github.com/jwalitptl/visitor-api/pkg/metrics"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, job *model.EmailJob) error {
	return m.Called(ctx, job).Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg *email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func fixtures() (*model.User, *model.Appointment) {
	user := &model.User{
		Base:      model.Base{ID: uuid.New()},
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@x.com",
		PhoneNo:   "555-0100",
	}
	appt := &model.Appointment{
		Base:     model.Base{ID: uuid.New()},
		UserID:   user.ID,
		Date:     time.Date(2025, 4, 26, 14, 0, 0, 0, time.UTC),
		Status:   model.StatusScheduled,
		PassType: model.PassTypeVisitorPass,
	}
	return user, appt
}

func TestAppointmentBookedQueuesConfirmation(t *testing.T) {
	q := &mockQueue{}
	q.On("Enqueue", mock.Anything, mock.MatchedBy(func(job *model.EmailJob) bool {
		return job.Kind == model.NotificationBookingConfirmation &&
			job.To == "john@x.com" &&
			job.ToName == "John Doe" &&
			job.Subject == email.ConfirmationSubject
	})).Return(nil).Once()

	svc := NewService(memory.NewUserRepository(memory.NewStore()), q, time.Second, zerolog.Nop(), metrics.NewNoop())
	user, appt := fixtures()

	svc.AppointmentBooked(user, appt)
	svc.Wait()

	q.AssertExpectations(t)
}

func TestAppointmentBookedSwallowsQueueFailure(t *testing.T) {
	q := &mockQueue{}
	q.On("Enqueue", mock.Anything, mock.Anything).Return(messaging.ErrQueueFull).Once()

	svc := NewService(memory.NewUserRepository(memory.NewStore()), q, time.Second, zerolog.Nop(), metrics.NewNoop())
	user, appt := fixtures()

	assert.NotPanics(t, func() {
		svc.AppointmentBooked(user, appt)
		svc.Wait()
	})
	q.AssertExpectations(t)
}

func TestStatusChangedOnlyForServingAndCancelled(t *testing.T) {
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	user, appt := fixtures()
	_, err := users.Upsert(context.Background(), user)
	require.NoError(t, err)
	appt.UserID = user.ID

	q := &mockQueue{}
	q.On("Enqueue", mock.Anything, mock.MatchedBy(func(job *model.EmailJob) bool {
		return job.Kind == model.NotificationStatusChanged && job.Subject == email.NotificationSubject && job.To == "john@x.com"
	})).Return(nil).Twice()

	svc := NewService(users, q, time.Second, zerolog.Nop(), metrics.NewNoop())

	for _, st := range []model.Status{model.StatusCheckedIn, model.StatusServing, model.StatusServed, model.StatusCancelled} {
		a := *appt
		a.Status = st
		svc.StatusChanged(&a)
	}
	svc.Wait()

	q.AssertExpectations(t)
}

func TestDelivererRetriesThenSucceeds(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("421 try later")).Twice()
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m *email.Message) bool {
		return m.To == "john@x.com" && m.Subject == email.ConfirmationSubject
	})).Return(nil).Once()

	d := NewDeliverer(sender, DeliveryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}, zerolog.Nop(), metrics.NewNoop())
	job := &model.EmailJob{ID: uuid.New(), Kind: model.NotificationBookingConfirmation, To: "john@x.com", Subject: email.ConfirmationSubject}

	require.NoError(t, d.Deliver(context.Background(), job))
	assert.Equal(t, 3, job.Attempts)
	sender.AssertExpectations(t)
}

func TestDelivererGivesUp(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("550 rejected"))

	d := NewDeliverer(sender, DeliveryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, zerolog.Nop(), metrics.NewNoop())
	job := &model.EmailJob{ID: uuid.New(), To: "john@x.com"}

	err := d.Deliver(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550 rejected")
	assert.Equal(t, 3, job.Attempts)
	sender.AssertNumberOfCalls(t, "Send", 3)
}
