package service

import (
	"context"
	"log"
	"strings"

	"familycalls/internal/model"
	"familycalls/internal/repository"
)

// DirectoryService manages the capped roster of family members. The device
// id presented at registration is the only credential the system knows.
type DirectoryService struct {
	users repository.UserRepository
}

func NewDirectoryService(users repository.UserRepository) *DirectoryService {
	return &DirectoryService{users: users}
}

// Register creates a roster entry for the device, or returns the existing
// one: registering the same device id twice yields the same user.
//
// The cap check and the insert are two sequential operations; a concurrent
// registration can slip between them, so the cap is best-effort.
func (s *DirectoryService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	existing, err := s.users.GetByDeviceID(ctx, req.DeviceID)
	if err == nil {
		log.Printf("[Directory] Register: device already registered as user=%s", existing.ID)
		return existing, nil
	}
	if err != model.ErrUserNotFound {
		return nil, err
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count >= model.MaxFamilyMembers {
		return nil, model.ErrCapacityExceeded
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		DeviceID: req.DeviceID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("[Directory] Register OK: user=%s roster=%d/%d", user.ID, count+1, model.MaxFamilyMembers)
	return user, nil
}

// Lookup resolves a device id to its user, if one exists.
func (s *DirectoryService) Lookup(ctx context.Context, deviceID string) (*model.User, error) {
	return s.users.GetByDeviceID(ctx, deviceID)
}

// GetByID returns a single roster entry.
func (s *DirectoryService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns the whole roster. With at most five members there is no
// pagination.
func (s *DirectoryService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// SetAvatar records the stored avatar URL on the user.
func (s *DirectoryService) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	return s.users.SetAvatar(ctx, userID, avatarURL)
}
