// Package memory хранит заказы в разделяемой map под одним глобальным локом.
// Дисциплина намеренно грубая: каждая операция удерживает лок на всё время
// выполнения, что даёт at-most-one-writer и сериализацию чтений с записями.
// Лок никогда не удерживается через точки приостановки или сетевой ввод-вывод.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
)

type orderRepositoryInMemory struct {
	mu     sync.Mutex
	orders map[int64]domain.Order
	nextID int64
}

// NewOrderRepository возвращает in-memory реализацию OrderRepository для
// локальной разработки и тестов. Вызывающие видят только копии заказов,
// сама map наружу никогда не отдаётся.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		orders: make(map[int64]domain.Order),
		nextID: 1,
	}
}

func (r *orderRepositoryInMemory) GetByID(_ context.Context, id int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *orderRepositoryInMemory) GetAll(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		result = append(result, cloneOrder(order))
	}
	sortByDateDesc(result)
	return result, nil
}

func (r *orderRepositoryInMemory) GetPaged(_ context.Context, query domain.PageQuery) (domain.PagedOrders, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if !matches(order, query) {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}
	sortByDateDesc(matched)

	total := len(matched)
	offset := query.Offset()
	if offset >= total {
		return domain.PagedOrders{Orders: []domain.Order{}, TotalCount: total}, nil
	}
	end := offset + query.PageSize
	if end > total {
		end = total
	}
	return domain.PagedOrders{Orders: matched[offset:end], TotalCount: total}, nil
}

func (r *orderRepositoryInMemory) ExistsOnDate(_ context.Context, customer string, date time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range r.orders {
		if order.Customer == customer && domain.SameCalendarDay(order.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *orderRepositoryInMemory) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Зеркало уникального индекса (клиент, день) в postgres: проверка под тем
	// же локом, что и вставка, поэтому из конкурентных создателей одной пары
	// побеждает ровно один.
	for _, existing := range r.orders {
		if existing.Customer == order.Customer && domain.SameCalendarDay(existing.Date, order.Date) {
			return domain.ErrDuplicateOrder
		}
	}

	order.ID = r.nextID
	r.nextID++
	for i := range order.Details {
		order.Details[i].ID = r.nextID
		order.Details[i].OrderID = order.ID
		r.nextID++
	}

	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *orderRepositoryInMemory) Replace(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}

	// Старый набор позиций отбрасывается целиком, слияния по id нет.
	for i := range order.Details {
		if order.Details[i].ID == 0 {
			order.Details[i].ID = r.nextID
			r.nextID++
		}
		order.Details[i].OrderID = order.ID
	}

	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *orderRepositoryInMemory) SetStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	r.orders[id] = order
	return nil
}

func (r *orderRepositoryInMemory) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return false, nil
	}
	delete(r.orders, id)
	return true, nil
}

func matches(order domain.Order, query domain.PageQuery) bool {
	if query.CustomerFilter != "" &&
		!strings.Contains(strings.ToLower(order.Customer), strings.ToLower(query.CustomerFilter)) {
		return false
	}
	if query.DateFrom != nil && order.Date.Before(*query.DateFrom) {
		return false
	}
	if query.DateTo != nil && order.Date.After(*query.DateTo) {
		return false
	}
	return true
}

func sortByDateDesc(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].Date.Equal(orders[j].Date) {
			return orders[i].Date.After(orders[j].Date)
		}
		return orders[i].ID > orders[j].ID
	})
}

func cloneOrder(order domain.Order) domain.Order {
	cp := order
	cp.Details = make([]domain.OrderDetail, len(order.Details))
	copy(cp.Details, order.Details)
	return cp
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
