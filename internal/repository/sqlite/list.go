package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
	"github.com/rodionaltshuler/smart-reminder-server/internal/repository"
)

var _ repository.ListRepository = (*DB)(nil)

const listColumns = `l.id, l.name, l.time_added, l.deleted, l.who_removed, l.time_removed`

// CreateListForUser runs in one IMMEDIATE transaction:
//  1. insert the list only if ownerID has no active list with that name
//  2. insert ownerID as the first collaborator
//
// The name check and the insert are a single statement, and the write lock
// is held from BEGIN, so two concurrent creates with the same name cannot
// both pass the check.
func (db *DB) CreateListForUser(ctx context.Context, list *model.ItemsList, ownerID string) error {
	if list.ID == "" {
		list.ID = xid.New().String()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create list tx: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO item_lists (id, name, time_added)
		 SELECT ?, ?, ?
		 WHERE NOT EXISTS (
			SELECT 1 FROM item_lists l
			JOIN list_members m ON m.list_id = l.id
			WHERE m.user_id = ? AND l.name = ? AND l.deleted = 0
		 )`,
		list.ID, list.Name, list.TimeAdded,
		ownerID, list.Name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting list %q: %w", list.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: inserting list %q: %w", list.Name, err)
	}
	if n == 0 {
		return apperror.Conflict("ItemList with this name already exists for a user: " + list.Name)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO list_members (list_id, user_id, joined) VALUES (?, ?, ?)`,
		list.ID, ownerID, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("sqlite: adding owner %s to list %s: %w", ownerID, list.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing create list tx: %w", err)
	}

	list.CollaboratingUsers = []string{ownerID}
	list.Deleted = false
	return nil
}

// GetListByID returns the list with its collaborators in the order they
// joined. Soft-deleted lists are returned too.
func (db *DB) GetListByID(ctx context.Context, id string) (*model.ItemsList, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+listColumns+` FROM item_lists l WHERE l.id = ?`, id)
	list, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Items list", id)
		}
		return nil, fmt.Errorf("sqlite: getting list %s: %w", id, err)
	}

	members, err := db.membersOf(ctx, `SELECT list_id, user_id FROM list_members WHERE list_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, err
	}
	if m := members[id]; len(m) > 0 {
		list.CollaboratingUsers = m
	}
	return list, nil
}

// ListListsForUser returns the active lists userID collaborates on, oldest
// first.
func (db *DB) ListListsForUser(ctx context.Context, userID string) ([]model.ItemsList, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+` FROM item_lists l
		 JOIN list_members m ON m.list_id = l.id
		 WHERE m.user_id = ? AND l.deleted = 0
		 ORDER BY l.time_added, l.rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lists of user %s: %w", userID, err)
	}
	defer rows.Close()

	lists := []model.ItemsList{}
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning list: %w", err)
		}
		lists = append(lists, *list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lists: %w", err)
	}
	if len(lists) == 0 {
		return lists, nil
	}

	members, err := db.membersOf(ctx,
		`SELECT list_id, user_id FROM list_members
		 WHERE list_id IN (SELECT list_id FROM list_members WHERE user_id = ?)
		 ORDER BY rowid`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	for i := range lists {
		if m := members[lists[i].ID]; len(m) > 0 {
			lists[i].CollaboratingUsers = m
		}
	}
	return lists, nil
}

// AddCollaborator inserts the membership row. The composite primary key
// makes a second insert of the same pair fail, which is reported as a
// conflict whether it came from a retry or a concurrent request.
func (db *DB) AddCollaborator(ctx context.Context, listID, userID string) (*model.ItemsList, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO list_members (list_id, user_id, joined) VALUES (?, ?, ?)`,
		listID, userID, time.Now().Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("User already has access to the list")
		}
		return nil, fmt.Errorf("sqlite: adding user %s to list %s: %w", userID, listID, err)
	}
	return db.GetListByID(ctx, listID)
}

// SoftDeleteList marks an active list as deleted.
func (db *DB) SoftDeleteList(ctx context.Context, listID, whoRemoved string, at int64) (*model.ItemsList, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE item_lists SET deleted = 1, who_removed = ?, time_removed = ?
		 WHERE id = ? AND deleted = 0`,
		whoRemoved, at, listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: deleting list %s: %w", listID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: deleting list %s: %w", listID, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("Items list", listID)
	}
	return db.GetListByID(ctx, listID)
}

// membersOf runs a (list_id, user_id) query and groups the users by list.
func (db *DB) membersOf(ctx context.Context, query string, args ...any) (map[string][]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading list members: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]string)
	for rows.Next() {
		var listID, userID string
		if err := rows.Scan(&listID, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning list member: %w", err)
		}
		members[listID] = append(members[listID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating list members: %w", err)
	}
	return members, nil
}

func scanList(s scanner) (*model.ItemsList, error) {
	var (
		l       model.ItemsList
		deleted int
	)
	if err := s.Scan(&l.ID, &l.Name, &l.TimeAdded, &deleted, &l.WhoRemoved, &l.TimeRemoved); err != nil {
		return nil, err
	}
	l.Deleted = deleted != 0
	l.CollaboratingUsers = []string{}
	return &l, nil
}
