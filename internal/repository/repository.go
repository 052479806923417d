// Package repository declares the storage contracts the services depend on.
//
// Implementations report a missing row as an error matching
// apperror.ErrNotFound and a violated uniqueness rule as apperror.ErrConflict.
// Any other error is a store failure.
package repository

import (
	"context"

	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
)

type UserRepository interface {
	// UpsertFromProfile finds the user by email (or by oauth when the email is
	// empty) and refreshes its profile fields, or inserts it. It is a single
	// atomic statement, so concurrent logins of one person converge on one row.
	UpsertFromProfile(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// SearchUsers matches a case-insensitive name substring or an exact email.
	SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error)
	SetDeviceID(ctx context.Context, userID, deviceID string) (*model.User, error)
}

type ListRepository interface {
	// CreateListForUser inserts the list with ownerID as its only collaborator.
	// It fails with a conflict when ownerID already collaborates on an active
	// list with the same name.
	CreateListForUser(ctx context.Context, list *model.ItemsList, ownerID string) error
	// GetListByID returns the list even when it is soft-deleted.
	GetListByID(ctx context.Context, id string) (*model.ItemsList, error)
	ListListsForUser(ctx context.Context, userID string) ([]model.ItemsList, error)
	// AddCollaborator fails with a conflict when userID is already a member.
	AddCollaborator(ctx context.Context, listID, userID string) (*model.ItemsList, error)
	SoftDeleteList(ctx context.Context, listID, whoRemoved string, at int64) (*model.ItemsList, error)
}

type ItemRepository interface {
	// CreateItem fails with a conflict when the list already has an active
	// item with the same name.
	CreateItem(ctx context.Context, item *model.Item) error
	// GetItemByID returns the item even when it is soft-deleted.
	GetItemByID(ctx context.Context, id string) (*model.Item, error)
	ListActiveItems(ctx context.Context, listID string) ([]model.Item, error)
	// SoftDeleteItem fails with not found when the item is missing or
	// already deleted.
	SoftDeleteItem(ctx context.Context, itemID, whoRemoved string, at int64) (*model.Item, error)
}
