package model

import "slices"

// ItemsList is a named list shared by its collaborating users.
//
// Timestamps are seconds since epoch. A removed list keeps its row: Deleted
// is set together with WhoRemoved and TimeRemoved.
type ItemsList struct {
	ID                 string   `json:"_id"`
	Name               string   `json:"name"`
	CollaboratingUsers []string `json:"collaboratingUsers"`
	TimeAdded          int64    `json:"timeAdded"`
	Deleted            bool     `json:"deleted"`
	WhoRemoved         string   `json:"whoRemoved,omitempty"`
	TimeRemoved        int64    `json:"timeRemoved,omitempty"`
}

// HasCollaborator reports whether userID is in the membership set.
func (l *ItemsList) HasCollaborator(userID string) bool {
	return userID != "" && slices.Contains(l.CollaboratingUsers, userID)
}
