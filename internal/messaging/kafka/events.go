package kafka

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
)

// TopicOrderEvents — топик событий жизненного цикла заказов.
const TopicOrderEvents = "salesorders.order.events"

// OrderEvent представляет событие заказа в шине.
type OrderEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OrderID    int64     `json:"order_id"`
	Customer   string    `json:"customer"`
	Status     string    `json:"status"`
	Total      string    `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOrderEvent создаёт событие для заказа с уникальным идентификатором.
func NewOrderEvent(eventType domain.OrderEventType, order domain.Order) OrderEvent {
	return OrderEvent{
		EventID:    uuid.NewString(),
		EventType:  string(eventType),
		OrderID:    order.ID,
		Customer:   order.Customer,
		Status:     string(order.Status),
		Total:      order.Total.StringFixed(2),
		OccurredAt: time.Now().UTC(),
	}
}
