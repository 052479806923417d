package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/repository"
)

// SearchLimit caps how many users a search returns.
const SearchLimit = 3

// UserService serves user lookups and push subscriptions.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// Search returns up to SearchLimit users whose name contains query or whose
// email equals it.
func (s *UserService) Search(ctx context.Context, query string) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if strings.Contains(query, "@") {
		query = normalizeEmail(query)
	}
	users, err := s.users.SearchUsers(ctx, query, SearchLimit)
	if err != nil {
		return nil, storeError(err, "service/user: searching users")
	}
	return users, nil
}

// GetUser returns the user with the given id.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "service/user: fetching user")
	}
	return user, nil
}

// Subscribe stores the push device id of the principal.
func (s *UserService) Subscribe(ctx context.Context, principal *model.User, deviceID string) (*model.User, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, apperror.ValidationFailed("deviceId", "Required param for push subscription {deviceId} is missing")
	}

	user, err := s.users.SetDeviceID(ctx, principal.ID, deviceID)
	if err != nil {
		return nil, storeError(err, "service/user: saving device id")
	}

	s.logger.Info("push subscription saved", slog.String("userID", user.ID))
	return user, nil
}
