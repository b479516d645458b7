// Package memory keeps users and appointments in process memory. It enforces
// the same uniqueness rules as the PostgreSQL schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository"
)

// Store is shared by the user and appointment repositories so the foreign
// key and join can be honored.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]model.User
	appointments map[uuid.UUID]model.Appointment
	order        []uuid.UUID
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]model.User),
		appointments: make(map[uuid.UUID]model.Appointment),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

type appointmentRepository struct {
	store *Store
}

func NewAppointmentRepository(store *Store) repository.AppointmentRepository {
	return &appointmentRepository{store: store}
}

func (r *appointmentRepository) Create(_ context.Context, appointment *model.Appointment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[appointment.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	if appointment.Status.IsOpen() && s.hasOpenLocked(appointment.UserID) {
		return repository.ErrOpenAppointmentExists
	}

	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.DateCreated = time.Now().UTC()

	stored := *appointment
	stored.User = nil
	s.appointments[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return nil
}

func (r *appointmentRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withUserLocked(a), nil
}

func (r *appointmentRepository) HasOpenAppointment(_ context.Context, userID uuid.UUID) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasOpenLocked(userID), nil
}

func (r *appointmentRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.Status, modifiedAt time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != from {
		return repository.ErrStatusChanged
	}

	a.Status = to
	a.DateModified = &modifiedAt
	s.appointments[id] = a
	return nil
}

func (r *appointmentRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Appointment{}
	for _, id := range s.order {
		a := s.appointments[id]
		if a.UserID == userID {
			out = append(out, &a)
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *appointmentRepository) ListByFilter(_ context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[model.Status]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		wanted[st] = true
	}

	out := []*model.Appointment{}
	for _, id := range s.order {
		a := s.appointments[id]
		if a.Date.Before(filter.From) || !a.Date.Before(filter.To) || !wanted[a.Status] {
			continue
		}
		out = append(out, s.withUserLocked(a))
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) hasOpenLocked(userID uuid.UUID) bool {
	for _, a := range s.appointments {
		if a.UserID == userID && a.Status.IsOpen() {
			return true
		}
	}
	return false
}

func (s *Store) withUserLocked(a model.Appointment) *model.Appointment {
	if u, ok := s.users[a.UserID]; ok {
		a.User = &u
	}
	return &a
}

func sortByDate(appointments []*model.Appointment) {
	sort.SliceStable(appointments, func(i, j int) bool {
		return appointments[i].Date.Before(appointments[j].Date)
	})
}

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) repository.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Upsert(_ context.Context, user *model.User) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.findByEmailLocked(user.Email); ok {
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.PhoneNo = user.PhoneNo
		if user.Sponsor != nil {
			existing.Sponsor = user.Sponsor
		}
		existing.Touch()
		s.users[existing.ID] = existing
		*user = existing
		return false, nil
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.DateCreated = time.Now().UTC()
	s.users[user.ID] = *user
	return true, nil
}

func (r *userRepository) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) List(_ context.Context) ([]*model.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (r *userRepository) Update(_ context.Context, user *model.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if other, ok := s.findByEmailLocked(user.Email); ok && other.ID != user.ID {
		return repository.ErrDuplicateEmail
	}

	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Email = user.Email
	existing.PhoneNo = user.PhoneNo
	if user.Sponsor != nil {
		existing.Sponsor = user.Sponsor
	}
	existing.Touch()
	s.users[existing.ID] = existing
	*user = existing
	return nil
}

func (r *userRepository) Count(_ context.Context) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) findByEmailLocked(email string) (model.User, bool) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return model.User{}, false
}
