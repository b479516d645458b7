package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationBookingConfirmation NotificationKind = "booking_confirmation"
	NotificationStatusChanged       NotificationKind = "status_changed"
)

// EmailJob is one outbound email handed from the request path to a mail
// queue. It is serialized as JSON when the queue is Redis.
type EmailJob struct {
	ID            uuid.UUID        `json:"id"`
	Kind          NotificationKind `json:"kind"`
	To            string           `json:"to"`
	ToName        string           `json:"toName"`
	Subject       string           `json:"subject"`
	HTMLBody      string           `json:"htmlBody"`
	AppointmentID uuid.UUID        `json:"appointmentId"`
	Attempts      int              `json:"attempts"`
	EnqueuedAt    time.Time        `json:"enqueuedAt"`
	LastError     string           `json:"lastError,omitempty"`
}
