package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okazaki/taskdesk/internal/models"
	"github.com/okazaki/taskdesk/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCannotDeleteOwner = errors.New("the owner account cannot be deleted")
	ErrCannotDemoteOwner = errors.New("the owner role cannot be changed")
)

// UserService handles the user directory operations reserved to the owner.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// List returns all accounts ordered by username, owner only.
func (s *UserService) List(actor *models.User) ([]models.User, error) {
	if !actor.IsOwner() {
		return nil, ErrOwnerOnly
	}
	users, err := s.userRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// DeleteWorker removes a worker account and everything referencing it in one
// transaction: their messages are deleted, their completion requests removed,
// decisions they made nulled, and their tasks reassigned to the owner.
func (s *UserService) DeleteWorker(actor *models.User, userID uint64) error {
	if !actor.IsOwner() {
		return ErrOwnerOnly
	}

	target, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if target.Role != models.RoleWorker {
		return ErrCannotDeleteOwner
	}

	owner, err := s.userRepo.FindOwner()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOwnerMissing
		}
		return fmt.Errorf("failed to find owner: %w", err)
	}

	if err := s.userRepo.DeleteWorkerCascade(target, owner); err != nil {
		return fmt.Errorf("failed to delete worker: %w", err)
	}
	return nil
}

// UpdateRole switches a user between worker and admin, owner only. Elevation
// to owner is always rejected so that exactly one owner exists, and the owner
// itself cannot be demoted.
func (s *UserService) UpdateRole(actor *models.User, userID uint64, role string) (*models.User, error) {
	if !actor.IsOwner() {
		return nil, ErrOwnerOnly
	}

	requested, ok := models.ParseRole(strings.ToLower(strings.TrimSpace(role)))
	if !ok {
		return nil, ErrInvalidRole
	}
	if requested == models.RoleOwner {
		return nil, ErrSecondOwner
	}

	target, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if target.IsOwner() {
		return nil, ErrCannotDemoteOwner
	}

	target.Role = requested
	if err := s.userRepo.Update(target); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return target, nil
}
