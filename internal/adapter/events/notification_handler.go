package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

type NotificationHandler struct {
	logger   logger.Logger
	out      io.Writer
	triggers []Trigger
}

// NewNotificationHandler prints every notification to out (nil for silence)
// and pokes the given triggers.
func NewNotificationHandler(logger logger.Logger, out io.Writer, triggers ...Trigger) *NotificationHandler {
	return &NotificationHandler{
		logger:   logger,
		out:      out,
		triggers: triggers,
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.StatusUpdateMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received %s for order %s", msg.Event, msg.OrderID),
		msg.OrderID, map[string]interface{}{
			"order_id":   msg.OrderID,
			"event":      msg.Event,
			"new_status": msg.NewStatus,
		})

	if h.out != nil {
		fmt.Fprintln(h.out, Describe(msg))
	}
	for _, t := range h.triggers {
		t.Trigger()
	}
	return nil
}

// Describe renders a notification as one line for a terminal.
func Describe(msg interfaces.StatusUpdateMessage) string {
	switch msg.Event {
	case interfaces.EventOrderOverdue:
		return fmt.Sprintf("Order %s at %s is still %s since %s",
			msg.OrderID, msg.RestaurantID, msg.NewStatus, msg.Timestamp.Format("15:04:05"))
	default:
		if msg.RiderID != "" && msg.OldStatus == msg.NewStatus {
			return fmt.Sprintf("Order %s claimed by rider %s", msg.OrderID, msg.RiderID)
		}
		return fmt.Sprintf("Order %s: status changed from '%s' to '%s' by %s %s",
			msg.OrderID, msg.OldStatus, msg.NewStatus, msg.Role, msg.ChangedBy)
	}
}
