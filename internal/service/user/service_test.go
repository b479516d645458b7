package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/visitor-api/pkg/errors"
)

func newService() *Service {
	return NewService(memory.NewUserRepository(memory.NewStore()), zerolog.Nop())
}

func johnDoe() *model.UserRequest {
	return &model.UserRequest{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@x.com",
		PhoneNo:   "555-0100",
	}
}

func TestCreateOrGetUserUpserts(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, created, err := svc.CreateOrGetUser(ctx, johnDoe())
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, first.ID)

	req := johnDoe()
	req.Email = "  JOHN@X.com "
	req.PhoneNo = "555-0199"
	second, created, err := svc.CreateOrGetUser(ctx, req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "555-0199", second.PhoneNo)

	n, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateOrGetUserValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*model.UserRequest)
		want   string
	}{
		{"first name", func(r *model.UserRequest) { r.FirstName = "" }, "firstName is required"},
		{"last name", func(r *model.UserRequest) { r.LastName = "  " }, "lastName is required"},
		{"email", func(r *model.UserRequest) { r.Email = "" }, "email is required"},
		{"phone", func(r *model.UserRequest) { r.PhoneNo = "" }, "phoneNo is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService()
			req := johnDoe()
			tt.modify(req)

			_, _, err := svc.CreateOrGetUser(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.want, err.(*apperrors.AppError).Message)
		})
	}
}

func TestGetUserNotFound(t *testing.T) {
	svc := newService()

	_, err := svc.GetUser(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListUsersOrdered(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for _, r := range []model.UserRequest{
		{FirstName: "Zed", LastName: "Brown", Email: "z@x.com", PhoneNo: "1"},
		{FirstName: "Amy", LastName: "Brown", Email: "a@x.com", PhoneNo: "2"},
		{FirstName: "Bob", LastName: "Adams", Email: "b@x.com", PhoneNo: "3"},
	} {
		r := r
		_, _, err := svc.CreateOrGetUser(ctx, &r)
		require.NoError(t, err)
	}

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Bob", users[0].FirstName)
	assert.Equal(t, "Amy", users[1].FirstName)
	assert.Equal(t, "Zed", users[2].FirstName)
}

func TestUpdateUser(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	john, _, err := svc.CreateOrGetUser(ctx, johnDoe())
	require.NoError(t, err)
	jane, _, err := svc.CreateOrGetUser(ctx, &model.UserRequest{FirstName: "Jane", LastName: "Roe", Email: "jane@x.com", PhoneNo: "555-0101"})
	require.NoError(t, err)

	req := johnDoe()
	req.LastName = "Smith"
	updated, err := svc.UpdateUser(ctx, john.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Smith", updated.LastName)
	assert.NotNil(t, updated.DateModified)

	req.Email = "JANE@x.com"
	_, err = svc.UpdateUser(ctx, john.ID, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, MsgDuplicateEmail, err.(*apperrors.AppError).Message)

	stored, err := svc.GetUser(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", stored.Email)

	_, err = svc.UpdateUser(ctx, uuid.New(), johnDoe())
	assert.True(t, apperrors.IsNotFound(err))
}
