package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	DateCreated  time.Time  `json:"dateCreated" db:"date_created"`
	DateModified *time.Time `json:"dateModified,omitempty" db:"date_modified"`
}

// Touch sets the modification timestamp to now in UTC.
func (b *Base) Touch() {
	now := time.Now().UTC()
	b.DateModified = &now
}
