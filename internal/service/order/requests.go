package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// DetailInput — одна позиция во входном запросе.
type DetailInput struct {
	// ID принимается для совместимости с клиентами, которые присылают
	// идентификаторы позиций при обновлении, но всегда игнорируется:
	// хранилище заменяет набор позиций целиком и выдаёт свежие идентификаторы.
	ID        int64
	Product   string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderRequest — запрос на регистрацию нового заказа.
type CreateOrderRequest struct {
	Date     time.Time
	Customer string
	Details  []DetailInput
}

// UpdateOrderRequest — запрос на полное обновление существующего заказа.
// Статус заказа запросом не меняется: переход Pending → Processed выполняет
// только фоновый процессор.
type UpdateOrderRequest struct {
	ID       int64
	Date     time.Time
	Customer string
	Details  []DetailInput
}

// ListOrdersRequest — запрос постраничного списка с необязательными фильтрами.
type ListOrdersRequest struct {
	Page     int
	PageSize int
	// Customer — подстрочный фильтр по клиенту без учёта регистра.
	Customer string
	DateFrom *time.Time
	DateTo   *time.Time
}
