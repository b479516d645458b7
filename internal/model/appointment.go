package model

import (
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	Base
	UserID   uuid.UUID `db:"user_id" json:"userId"`
	Date     time.Time `db:"date" json:"date"`
	Status   Status    `db:"status" json:"status"`
	PassType PassType  `db:"pass_type" json:"passType"`
	User     *User     `db:"-" json:"user,omitempty"`
}

type CreateAppointmentRequest struct {
	UserID  string `json:"userId"`
	Date    string `json:"date"`
	Service string `json:"service"`
}

// AppointmentQuery selects appointments either by user or by date range.
// Statuses holds raw filter values as received.
type AppointmentQuery struct {
	UserID    *uuid.UUID
	StartDate string
	EndDate   string
	Statuses  []string
}

// AppointmentFilter is a resolved date range query.
type AppointmentFilter struct {
	From     time.Time
	To       time.Time // exclusive
	Statuses []Status
}
