package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/visitor-api/internal/model"
	"github.com/jwalitptl/visitor-api/internal/repository"
	apperrors "github.com/jwalitptl/visitor-api/pkg/errors"
	"github.com/jwalitptl/visitor-api/pkg/validator"
)

const MsgDuplicateEmail = "A user with this email already exists."

type Service struct {
	repo      repository.UserRepository
	validator validator.Validator
	logger    zerolog.Logger
}

func NewService(repo repository.UserRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateOrGetUser upserts a user keyed by case-insensitive email. The bool
// reports whether a new row was inserted.
func (s *Service) CreateOrGetUser(ctx context.Context, req *model.UserRequest) (*model.User, bool, error) {
	user, err := s.buildUser(req)
	if err != nil {
		return nil, false, err
	}

	created, err := s.repo.Upsert(ctx, user)
	if err != nil {
		return nil, false, apperrors.Internal(fmt.Errorf("failed to upsert user: %w", err))
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Bool("created", created).
		Msg("user resolved")
	return user, created, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(id, err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to get user: %w", err))
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list users: %w", err))
	}
	return users, nil
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, req *model.UserRequest) (*model.User, error) {
	user, err := s.buildUser(req)
	if err != nil {
		return nil, err
	}
	user.ID = id

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, notFound(id, err)
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, apperrors.Conflict(MsgDuplicateEmail, err)
		default:
			return nil, apperrors.Internal(fmt.Errorf("failed to update user: %w", err))
		}
	}

	s.logger.Info().Str("user_id", id.String()).Msg("user updated")
	return user, nil
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperrors.Internal(fmt.Errorf("failed to count users: %w", err))
	}
	return n, nil
}

func (s *Service) buildUser(req *model.UserRequest) (*model.User, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}

	clean := model.UserRequest{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		PhoneNo:   strings.TrimSpace(req.PhoneNo),
	}
	if req.Sponsor != nil {
		if sponsor := strings.TrimSpace(*req.Sponsor); sponsor != "" {
			clean.Sponsor = &sponsor
		}
	}

	if err := s.validator.Validate(&clean); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	return &model.User{
		FirstName: clean.FirstName,
		LastName:  clean.LastName,
		Email:     clean.Email,
		PhoneNo:   clean.PhoneNo,
		Sponsor:   clean.Sponsor,
	}, nil
}

func notFound(id uuid.UUID, err error) error {
	return apperrors.NotFound(fmt.Sprintf("Unable to find a user with the ID %s", id), err)
}
