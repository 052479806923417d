package service

import (
	"context"
	"log/slog"

	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
)

// Notifier is told about every successful invitation. Delivery (push,
// email) happens outside the request; a failing notifier never fails the
// invitation.
type Notifier interface {
	InviteSent(ctx context.Context, inviter *model.User, list *model.ItemsList, invitee *model.User) error
}

// NotificationRecorder counts notification outcomes.
type NotificationRecorder interface {
	RecordNotification(outcome string)
}

// InvitePayload is the data message a push provider would deliver to the
// invitee's device.
type InvitePayload struct {
	Action   string `json:"action"`
	WhoID    string `json:"whoId"`
	Who      string `json:"who"`
	ListID   string `json:"listId"`
	ListName string `json:"listName"`
	WhomID   string `json:"whomId"`
	WhomName string `json:"whomName"`
	DeviceID string `json:"-"`
}

// NewInvitePayload builds the push payload for an invitation.
func NewInvitePayload(inviter *model.User, list *model.ItemsList, invitee *model.User) InvitePayload {
	return InvitePayload{
		Action:   "invite",
		WhoID:    inviter.ID,
		Who:      inviter.Name,
		ListID:   list.ID,
		ListName: list.Name,
		WhomID:   invitee.ID,
		WhomName: invitee.Name,
		DeviceID: invitee.DeviceID,
	}
}

// LogNotifier records invitations in the log instead of pushing them.
// Invitees without a device id are skipped.
type LogNotifier struct {
	logger   *slog.Logger
	recorder NotificationRecorder
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier. recorder may be nil.
func NewLogNotifier(logger *slog.Logger, recorder NotificationRecorder) *LogNotifier {
	return &LogNotifier{logger: logger, recorder: recorder}
}

func (n *LogNotifier) InviteSent(ctx context.Context, inviter *model.User, list *model.ItemsList, invitee *model.User) error {
	if invitee.DeviceID == "" {
		n.record("skipped")
		n.logger.DebugContext(ctx, "invitee has no push device, notification skipped",
			slog.String("userID", invitee.ID),
			slog.String("listID", list.ID),
		)
		return nil
	}

	p := NewInvitePayload(inviter, list, invitee)
	n.record("sent")
	n.logger.InfoContext(ctx, "invite notification",
		slog.String("action", p.Action),
		slog.String("whoId", p.WhoID),
		slog.String("listId", p.ListID),
		slog.String("listName", p.ListName),
		slog.String("whomId", p.WhomID),
		slog.String("deviceId", p.DeviceID),
	)
	return nil
}

func (n *LogNotifier) record(outcome string) {
	if n.recorder != nil {
		n.recorder.RecordNotification(outcome)
	}
}
