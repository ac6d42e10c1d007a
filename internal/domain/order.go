package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа на продажу.
type OrderStatus string

const (
	// OrderStatusPending — заказ зарегистрирован и ожидает фоновой обработки.
	OrderStatusPending OrderStatus = "Pending"
	// OrderStatusProcessed — заказ обработан фоновым процессором; терминальный статус.
	OrderStatusProcessed OrderStatus = "Processed"
)

// OrderDetail представляет одну позицию заказа.
type OrderDetail struct {
	// ID позиции присваивается хранилищем при создании.
	ID int64
	// OrderID — обратная ссылка на заказ-владелец.
	OrderID int64
	// Product — наименование товара.
	Product string
	// Quantity — количество единиц, всегда положительное.
	Quantity int
	// UnitPrice — цена за единицу, неотрицательная.
	UnitPrice decimal.Decimal
}

// Subtotal возвращает производную сумму позиции: количество × цена за единицу.
// Значение нигде не хранится отдельно и всегда вычисляется заново.
func (d OrderDetail) Subtotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// Order агрегирует шапку заказа и принадлежащие ему позиции.
// Удаление заказа уничтожает и все его позиции.
type Order struct {
	ID       int64
	Date     time.Time
	Customer string
	Status   OrderStatus
	Total    decimal.Decimal
	Details  []OrderDetail
}

// ComputeTotal пересчитывает Total как сумму промежуточных сумм всех позиций.
// Метод идемпотентен и не имеет побочных эффектов кроме записи в Total.
func (o *Order) ComputeTotal() {
	total := decimal.Zero
	for _, d := range o.Details {
		total = total.Add(d.Subtotal())
	}
	o.Total = total
}

// IsValid проверяет базовые инварианты заказа: непустой клиент, хотя бы одна
// позиция, положительные количества, неотрицательные цены и итог.
// Предикат только читает состояние; сервисный слой вызывает его перед
// сохранением, само хранилище повторных проверок не делает.
func (o *Order) IsValid() bool {
	if strings.TrimSpace(o.Customer) == "" {
		return false
	}
	if len(o.Details) == 0 {
		return false
	}
	for _, d := range o.Details {
		if d.Quantity <= 0 || d.UnitPrice.IsNegative() {
			return false
		}
	}
	return !o.Total.IsNegative()
}

// SameCalendarDay сообщает, относятся ли два момента времени к одному
// календарному дню (время суток игнорируется).
func SameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayBounds возвращает включительные границы календарного дня даты t:
// [00:00:00, 23:59:59.999999999].
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
