// Package legacy воспроизводит старый внутрипроцессный сервис заказов,
// который всё ещё используют офлайн-инструменты: собственная map заказов под
// одним глобальным локом, без внешнего хранилища. Валидация и проверка
// дубликата выполняются внутри критической секции, поэтому при конкурентной
// регистрации одинаковой пары (клиент, день) побеждает ровно один вызов.
package legacy

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
)

const (
	customerMinLen = 3
	customerMaxLen = 100
	productMinLen  = 2
	productMaxLen  = 100
	quantityMin    = 1
	quantityMax    = 9999
)

var maxUnitPrice = decimal.RequireFromString("999999.99")

// OrderService — потокобезопасный сервис заказов поверх внутренней map.
type OrderService struct {
	mu     sync.Mutex
	orders map[int64]domain.Order
	nextID int64
	logger *log.Entry
	now    func() time.Time
}

// Option настраивает OrderService.
type Option func(*OrderService)

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *OrderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock подменяет источник времени для тестов.
func WithClock(now func() time.Time) Option {
	return func(s *OrderService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewOrderService создаёт сервис с пустым состоянием.
func NewOrderService(opts ...Option) *OrderService {
	s := &OrderService{
		orders: make(map[int64]domain.Order),
		nextID: 1,
		logger: log.New().WithField("component", "legacy_order_service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register регистрирует новый заказ. Проверка полей и поиск дубликата
// происходят под локом, счётчик идентификаторов продвигается только при
// успехе.
func (s *OrderService) Register(order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order.Customer = strings.TrimSpace(order.Customer)
	if err := s.validateLocked(order, true); err != nil {
		return domain.Order{}, err
	}

	for _, existing := range s.orders {
		if existing.Customer == order.Customer && domain.SameCalendarDay(existing.Date, order.Date) {
			return domain.Order{}, domain.NewConflictFault(
				fmt.Sprintf("customer %q already has an order on %s", order.Customer, order.Date.Format("2006-01-02")))
		}
	}

	order.ID = s.nextID
	s.nextID++
	for i := range order.Details {
		order.Details[i].ID = s.nextID
		order.Details[i].OrderID = order.ID
		s.nextID++
	}
	order.Status = domain.OrderStatusPending
	order.ComputeTotal()

	s.orders[order.ID] = cloneOrder(order)
	s.logger.WithField("order_id", order.ID).Info("order registered")
	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *OrderService) Get(id int64) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.NewNotFoundFault(fmt.Sprintf("order %d does not exist", id))
	}
	return cloneOrder(order), nil
}

// List возвращает все заказы, отсортированные по дате по убыванию.
func (s *OrderService) List() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, cloneOrder(order))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

// Update полностью заменяет существующий заказ: шапка перезаписывается,
// позиции заменяются целиком с новыми идентификаторами, статус сохраняется.
func (s *OrderService) Update(order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.orders[order.ID]
	if !ok {
		return domain.Order{}, domain.NewNotFoundFault(fmt.Sprintf("order %d does not exist", order.ID))
	}

	order.Customer = strings.TrimSpace(order.Customer)
	if err := s.validateLocked(order, false); err != nil {
		return domain.Order{}, err
	}

	for i := range order.Details {
		order.Details[i].ID = s.nextID
		order.Details[i].OrderID = order.ID
		s.nextID++
	}
	order.Status = existing.Status
	order.ComputeTotal()

	s.orders[order.ID] = cloneOrder(order)
	s.logger.WithField("order_id", order.ID).Info("order updated")
	return order, nil
}

// Delete удаляет заказ вместе с позициями.
func (s *OrderService) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return domain.NewNotFoundFault(fmt.Sprintf("order %d does not exist", id))
	}
	delete(s.orders, id)
	s.logger.WithField("order_id", id).Info("order deleted")
	return nil
}

func (s *OrderService) validateLocked(order domain.Order, isRegister bool) error {
	if len(order.Customer) < customerMinLen || len(order.Customer) > customerMaxLen {
		return domain.NewValidationFault(
			fmt.Sprintf("customer name must be between %d and %d characters", customerMinLen, customerMaxLen))
	}
	if order.Date.IsZero() {
		return domain.NewValidationFault("order date is required")
	}
	if isRegister && order.Date.After(s.now()) {
		return domain.NewValidationFault("order date cannot be in the future")
	}
	if len(order.Details) == 0 {
		return domain.NewValidationFault("order must contain at least one detail line")
	}
	for i, d := range order.Details {
		product := strings.TrimSpace(d.Product)
		if len(product) < productMinLen || len(product) > productMaxLen {
			return domain.NewValidationFault(
				fmt.Sprintf("detail %d: product name must be between %d and %d characters", i+1, productMinLen, productMaxLen))
		}
		if d.Quantity < quantityMin || d.Quantity > quantityMax {
			return domain.NewValidationFault(
				fmt.Sprintf("detail %d: quantity must be between %d and %d", i+1, quantityMin, quantityMax))
		}
		if d.UnitPrice.IsNegative() || d.UnitPrice.GreaterThan(maxUnitPrice) {
			return domain.NewValidationFault(
				fmt.Sprintf("detail %d: unit price must be between 0 and %s", i+1, maxUnitPrice))
		}
	}
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	cp := order
	cp.Details = make([]domain.OrderDetail, len(order.Details))
	copy(cp.Details, order.Details)
	return cp
}
