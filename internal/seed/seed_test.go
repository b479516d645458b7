package seed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository/memory"
)

func TestRunSeedsEmptyStoreOnce(t *testing.T) {
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	appts := memory.NewAppointmentRepository(store)

	s := NewSeeder(users, appts, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2025, 4, 26, 8, 30, 0, 0, time.UTC) }

	seeded, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, seeded)

	n, err := users.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	day := time.Date(2025, 4, 26, 0, 0, 0, 0, time.UTC)
	list, err := appts.ListByFilter(context.Background(), model.AppointmentFilter{
		From:     day,
		To:       day.AddDate(0, 0, 1),
		Statuses: model.OpenStatuses,
	})
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, day.Add(9*time.Hour), list[0].Date)
	assert.Equal(t, model.PassTypeGolfPass, list[1].PassType)
	assert.Equal(t, model.StatusServing, list[2].Status)
	assert.Equal(t, "Sarah", list[4].User.FirstName)

	seeded, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)

	n, err = users.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
