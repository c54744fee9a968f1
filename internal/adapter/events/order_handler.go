package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// Trigger is anything that can be told to refresh early, such as a feed watcher.
type Trigger interface {
	Trigger()
}

// OrderHandler reacts to new-order messages on a vendor's queue.
type OrderHandler struct {
	trigger Trigger
	logger  logger.Logger
}

func NewOrderHandler(trigger Trigger, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		trigger: trigger,
		logger:  logger,
	}
}

func (h *OrderHandler) HandleOrder(ctx context.Context, body []byte) error {
	var msg interfaces.OrderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse order message", "", nil, err)
		return err
	}

	h.logger.Debug("order_message_received", fmt.Sprintf("New order %s for %s", msg.OrderID, msg.RestaurantID), msg.OrderID, map[string]interface{}{
		"order_id":      msg.OrderID,
		"restaurant_id": msg.RestaurantID,
		"total":         msg.Total.String(),
	})

	// Сообщение только ускоряет опрос, сам заказ читается из хранилища
	h.trigger.Trigger()
	return nil
}
