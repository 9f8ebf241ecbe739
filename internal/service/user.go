package service

import (
	"context"
	"fmt"
	"strings"

	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository"
)

type userService struct {
	tx       repository.Transactor
	userRepo repository.UserRepository
	loanRepo repository.LoanRepository
	recorder *recorder
	clock    clock.Clock
}

func NewUserService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	loanRepo repository.LoanRepository,
	eventRepo repository.EventRepository,
	clk clock.Clock,
) UserService {
	return &userService{
		tx:       tx,
		userRepo: userRepo,
		loanRepo: loanRepo,
		recorder: &recorder{events: eventRepo, clock: clk},
		clock:    clk,
	}
}

func (s *userService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	logger.EnterMethod("userService.CreateUser", "name", in.Name)

	name := strings.TrimSpace(in.Name)
	nationalID := strings.TrimSpace(in.NationalID)
	if name == "" || nationalID == "" {
		return nil, exitWithError("userService.CreateUser", invalidInput("name and national id are required"))
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:         newID(),
		Name:       name,
		NationalID: nationalID,
		Address:    in.Address,
		Phone:      in.Phone,
		Email:      in.Email,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return s.recorder.record(ctx, draft{
			typ:     domain.EventUserCreated,
			payload: domain.UserCreatedPayload{UserID: user.ID, Name: user.Name},
			userID:  strPtr(user.ID),
		})
	})
	if err != nil {
		return nil, exitWithError("userService.CreateUser", err, "name", name)
	}

	logger.ExitMethod("userService.CreateUser", "userID", user.ID)
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error) {
	logger.EnterMethod("userService.UpdateUser", "userID", id)

	if in.IsEmpty() {
		// nothing supplied: no write, no event
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, exitWithError("userService.UpdateUser", err, "userID", id)
		}
		logger.ExitMethod("userService.UpdateUser", "userID", id, "changed", false)
		return user, nil
	}
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return nil, exitWithError("userService.UpdateUser", invalidInput("name must not be empty"))
		}
		in.Name = &trimmed
	}
	if in.NationalID != nil {
		trimmed := strings.TrimSpace(*in.NationalID)
		if trimmed == "" {
			return nil, exitWithError("userService.UpdateUser", invalidInput("national id must not be empty"))
		}
		in.NationalID = &trimmed
	}

	var user *domain.User
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if user, err = s.userRepo.Update(ctx, id, in); err != nil {
			return err
		}
		return s.recorder.record(ctx, draft{
			typ:     domain.EventUserUpdated,
			payload: domain.UserUpdatedPayload{UserID: id, Changes: in},
			userID:  strPtr(id),
		})
	})
	if err != nil {
		return nil, exitWithError("userService.UpdateUser", err, "userID", id)
	}

	logger.ExitMethod("userService.UpdateUser", "userID", id)
	return user, nil
}

// DeleteUser removes a user without open loans. Historical loans keep the
// borrower name captured when they were created.
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	logger.EnterMethod("userService.DeleteUser", "userID", id)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.userRepo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		open, err := s.loanRepo.CountOpenByUser(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: user %s has %d open loans", domain.ErrConflict, id, open)
		}
		if err := s.userRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.recorder.record(ctx, draft{
			typ:     domain.EventUserDeleted,
			payload: domain.UserDeletedPayload{UserID: id},
			userID:  strPtr(id),
		})
	})
	if err != nil {
		return exitWithError("userService.DeleteUser", err, "userID", id)
	}

	logger.ExitMethod("userService.DeleteUser", "userID", id)
	return nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.List(ctx)
}

func (s *userService) SearchUsers(ctx context.Context, query string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.userRepo.List(ctx)
	}
	return s.userRepo.Search(ctx, query)
}
