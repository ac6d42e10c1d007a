package domain

// OrderEventType определяет тип события жизненного цикла заказа.
type OrderEventType string

const (
	// OrderEventCreated — заказ зарегистрирован.
	OrderEventCreated OrderEventType = "order.created"
	// OrderEventUpdated — заказ полностью обновлён (шапка + позиции).
	OrderEventUpdated OrderEventType = "order.updated"
	// OrderEventDeleted — заказ удалён вместе с позициями.
	OrderEventDeleted OrderEventType = "order.deleted"
	// OrderEventProcessed — фоновый процессор перевёл заказ в Processed.
	OrderEventProcessed OrderEventType = "order.processed"
)

// OrderEventPublisher публикует события жизненного цикла заказа во внешнюю
// шину. Публикация не участвует в транзакции хранилища: ошибка публикации
// логируется, но не откатывает бизнес-операцию.
type OrderEventPublisher interface {
	PublishOrderEvent(eventType OrderEventType, order Order) error
}
