package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/repository"
)

const notCollaboratorMessage = "You're not among collaborating users of the itemsList requested"

// InviteRecorder counts invitation outcomes.
type InviteRecorder interface {
	RecordInvite(outcome string)
}

// CollaborationService enforces list membership on every list and item
// operation.
//
// Membership only grows: lists start with their creator as the sole
// collaborator and any collaborator may invite another user. Removing a
// list or an item is a soft delete that records who did it and when.
type CollaborationService struct {
	users    repository.UserRepository
	lists    repository.ListRepository
	items    repository.ItemRepository
	notifier Notifier
	logger   *slog.Logger
	recorder InviteRecorder
	now      func() time.Time
}

// NewCollaborationService creates a CollaborationService. notifier and
// recorder may be nil.
func NewCollaborationService(
	users repository.UserRepository,
	lists repository.ListRepository,
	items repository.ItemRepository,
	notifier Notifier,
	logger *slog.Logger,
	recorder InviteRecorder,
) *CollaborationService {
	return &CollaborationService{
		users:    users,
		lists:    lists,
		items:    items,
		notifier: notifier,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// RequireMembership fails with a forbidden error unless principal is a
// collaborator of list.
func (s *CollaborationService) RequireMembership(principal *model.User, list *model.ItemsList) error {
	if principal == nil || list == nil || !list.HasCollaborator(principal.ID) {
		return apperror.Forbidden(notCollaboratorMessage)
	}
	return nil
}

// Invite adds targetUserID to the collaborators of listID. The checks run in
// a fixed order: target exists, list exists, principal is a collaborator,
// target is not one yet.
func (s *CollaborationService) Invite(ctx context.Context, principal *model.User, listID, targetUserID string) (*model.ItemsList, error) {
	target, err := s.users.GetUserByID(ctx, targetUserID)
	if err != nil {
		s.recordInvite("error")
		return nil, storeError(err, "service/collaboration: fetching invitee")
	}

	list, err := s.activeList(ctx, listID)
	if err != nil {
		s.recordInvite("error")
		return nil, err
	}

	if !list.HasCollaborator(principal.ID) {
		s.recordInvite("forbidden")
		return nil, apperror.Forbidden("You are not authorized to invite users to this list")
	}

	alreadyMember := apperror.Conflict("User already has access to list " + list.Name)
	if list.HasCollaborator(target.ID) {
		s.recordInvite("conflict")
		return nil, alreadyMember
	}

	updated, err := s.lists.AddCollaborator(ctx, list.ID, target.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.recordInvite("conflict")
			return nil, alreadyMember
		}
		s.recordInvite("error")
		return nil, storeError(err, "service/collaboration: adding collaborator")
	}

	s.recordInvite("success")
	s.logger.Info("user invited",
		slog.String("listID", updated.ID),
		slog.String("inviterID", principal.ID),
		slog.String("inviteeID", target.ID),
	)

	if s.notifier != nil {
		if err := s.notifier.InviteSent(ctx, principal, updated, target); err != nil {
			s.logger.Warn("invite notification failed",
				slog.String("listID", updated.ID),
				slog.String("inviteeID", target.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return updated, nil
}

// CreateList creates a list with principal as its only collaborator. A
// principal cannot have two active lists with the same name.
func (s *CollaborationService) CreateList(ctx context.Context, principal *model.User, name string) (*model.ItemsList, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperror.ValidationFailed("name", "Required param {name} is missing")
	}

	list := &model.ItemsList{
		Name:      name,
		TimeAdded: s.now().Unix(),
	}
	if err := s.lists.CreateListForUser(ctx, list, principal.ID); err != nil {
		return nil, storeError(err, "service/collaboration: creating list")
	}

	s.logger.Info("list created",
		slog.String("listID", list.ID),
		slog.String("userID", principal.ID),
	)
	return list, nil
}

// ListLists returns the active lists principal collaborates on.
func (s *CollaborationService) ListLists(ctx context.Context, principal *model.User) ([]model.ItemsList, error) {
	lists, err := s.lists.ListListsForUser(ctx, principal.ID)
	if err != nil {
		return nil, storeError(err, "service/collaboration: listing lists")
	}
	return lists, nil
}

// RemoveList soft-deletes a list the principal collaborates on.
func (s *CollaborationService) RemoveList(ctx context.Context, principal *model.User, listID string) (*model.ItemsList, error) {
	list, err := s.activeList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireMembership(principal, list); err != nil {
		return nil, err
	}

	removed, err := s.lists.SoftDeleteList(ctx, list.ID, principal.ID, s.now().Unix())
	if err != nil {
		return nil, storeError(err, "service/collaboration: removing list")
	}

	s.logger.Info("list removed",
		slog.String("listID", removed.ID),
		slog.String("userID", principal.ID),
	)
	return removed, nil
}

// CreateItem adds an item to a list the principal collaborates on. Names
// are unique among the active items of a list.
func (s *CollaborationService) CreateItem(ctx context.Context, principal *model.User, listID, name string) (*model.Item, error) {
	if listID == "" {
		return nil, apperror.ValidationFailed("listId", "Required param listId is missing, cannot add item to the list")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperror.ValidationFailed("name", "Required param name is missing, cannot add item to the list")
	}

	list, err := s.activeList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireMembership(principal, list); err != nil {
		return nil, err
	}

	item := &model.Item{
		Name:      name,
		ItemsList: list.ID,
		WhoAdded:  principal.ID,
		TimeAdded: s.now().Unix(),
		Notified:  []string{},
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, storeError(err, "service/collaboration: creating item")
	}
	return item, nil
}

// ListItems returns the active items of a list the principal collaborates on.
func (s *CollaborationService) ListItems(ctx context.Context, principal *model.User, listID string) ([]model.Item, error) {
	if listID == "" {
		return nil, apperror.ValidationFailed("listId", "Required param listId is missing")
	}

	list, err := s.activeList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.RequireMembership(principal, list); err != nil {
		return nil, err
	}

	items, err := s.items.ListActiveItems(ctx, list.ID)
	if err != nil {
		return nil, storeError(err, "service/collaboration: listing items")
	}
	return items, nil
}

// GetItem returns an item, deleted or not, if the principal collaborates on
// its list.
func (s *CollaborationService) GetItem(ctx context.Context, principal *model.User, itemID string) (*model.Item, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, storeError(err, "service/collaboration: fetching item")
	}
	if err := s.requireItemAccess(ctx, principal, item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem soft-deletes an active item of a list the principal
// collaborates on. An item that is already deleted is not found.
func (s *CollaborationService) RemoveItem(ctx context.Context, principal *model.User, itemID string) (*model.Item, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, storeError(err, "service/collaboration: fetching item")
	}
	if item.Deleted {
		return nil, apperror.NotFound("Item", itemID)
	}
	if err := s.requireItemAccess(ctx, principal, item); err != nil {
		return nil, err
	}

	removed, err := s.items.SoftDeleteItem(ctx, item.ID, principal.ID, s.now().Unix())
	if err != nil {
		return nil, storeError(err, "service/collaboration: removing item")
	}

	s.logger.Info("item removed",
		slog.String("itemID", removed.ID),
		slog.String("listID", removed.ItemsList),
		slog.String("userID", principal.ID),
	)
	return removed, nil
}

// activeList loads a list and reports a soft-deleted one as not found.
func (s *CollaborationService) activeList(ctx context.Context, listID string) (*model.ItemsList, error) {
	list, err := s.lists.GetListByID(ctx, listID)
	if err != nil {
		return nil, storeError(err, "service/collaboration: fetching list")
	}
	if list.Deleted {
		return nil, apperror.NotFound("Items list", listID)
	}
	return list, nil
}

// requireItemAccess checks membership on the list owning item. The list
// may be deleted; its membership still decides.
func (s *CollaborationService) requireItemAccess(ctx context.Context, principal *model.User, item *model.Item) error {
	list, err := s.lists.GetListByID(ctx, item.ItemsList)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Forbidden(notCollaboratorMessage)
		}
		return storeError(err, "service/collaboration: fetching item list")
	}
	return s.RequireMembership(principal, list)
}

func (s *CollaborationService) recordInvite(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordInvite(outcome)
	}
}
