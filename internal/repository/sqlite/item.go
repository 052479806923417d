package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/repository"
)

var _ repository.ItemRepository = (*DB)(nil)

const itemColumns = `id, list_id, name, who_added, time_added, deleted, who_removed, time_removed, notified`

// CreateItem inserts an active item. The partial unique index on
// (list_id, name) WHERE deleted = 0 rejects a second active item with the
// same name; deleted items do not count.
func (db *DB) CreateItem(ctx context.Context, item *model.Item) error {
	if item.ID == "" {
		item.ID = xid.New().String()
	}
	if item.Notified == nil {
		item.Notified = []string{}
	}
	notified, err := json.Marshal(item.Notified)
	if err != nil {
		return fmt.Errorf("sqlite: encoding notified users: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO items (id, list_id, name, who_added, time_added, notified)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.ItemsList, item.Name, item.WhoAdded, item.TimeAdded, string(notified),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Item with this name already exists in the list " + item.ItemsList)
		}
		return fmt.Errorf("sqlite: inserting item %q into list %s: %w", item.Name, item.ItemsList, err)
	}
	item.Deleted = false
	return nil
}

// GetItemByID returns the item, deleted or not.
func (db *DB) GetItemByID(ctx context.Context, id string) (*model.Item, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Item", id)
		}
		return nil, fmt.Errorf("sqlite: getting item %s: %w", id, err)
	}
	return item, nil
}

// ListActiveItems returns the non-deleted items of a list in insertion order.
func (db *DB) ListActiveItems(ctx context.Context, listID string) ([]model.Item, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE list_id = ? AND deleted = 0
		 ORDER BY time_added, rowid`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items of list %s: %w", listID, err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}
	return items, nil
}

// SoftDeleteItem marks an active item as deleted and returns it.
// A missing or already deleted item is reported as not found.
func (db *DB) SoftDeleteItem(ctx context.Context, itemID, whoRemoved string, at int64) (*model.Item, error) {
	row := db.conn.QueryRowContext(ctx,
		`UPDATE items SET deleted = 1, who_removed = ?, time_removed = ?
		 WHERE id = ? AND deleted = 0
		 RETURNING `+itemColumns,
		whoRemoved, at, itemID,
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Item", itemID)
		}
		return nil, fmt.Errorf("sqlite: deleting item %s: %w", itemID, err)
	}
	return item, nil
}

func scanItem(s scanner) (*model.Item, error) {
	var (
		it       model.Item
		deleted  int
		notified string
	)
	if err := s.Scan(&it.ID, &it.ItemsList, &it.Name, &it.WhoAdded, &it.TimeAdded,
		&deleted, &it.WhoRemoved, &it.TimeRemoved, &notified); err != nil {
		return nil, err
	}
	it.Deleted = deleted != 0
	if err := json.Unmarshal([]byte(notified), &it.Notified); err != nil {
		return nil, fmt.Errorf("decoding notified users: %w", err)
	}
	if it.Notified == nil {
		it.Notified = []string{}
	}
	return &it, nil
}
