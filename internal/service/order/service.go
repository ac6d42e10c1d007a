package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
	"github.com/vladislavdragonenkov/salesorders/internal/metrics"
)

const (
	customerMinLen = 3
	customerMaxLen = 100
	productMinLen  = 2
	productMaxLen  = 100
	quantityMin    = 1
	quantityMax    = 9999

	defaultPageSize = 10
	maxPageSize     = 100
)

// maxUnitPrice — верхняя граница цены за единицу.
var maxUnitPrice = decimal.RequireFromString("999999.99")

// PagedResult — страница заказов с метаданными пагинации.
type PagedResult struct {
	Items       []domain.Order
	Page        int
	PageSize    int
	TotalCount  int
	TotalPages  int
	HasPrevious bool
	HasNext     bool
}

// Service реализует бизнес-операции над заказами поверх OrderRepository.
// Все инварианты (валидация полей, дубликат на дату, пересчёт итога)
// проверяются здесь до обращения к хранилищу.
type Service struct {
	repo      domain.OrderRepository
	publisher domain.OrderEventPublisher
	metrics   *metrics.OrderMetrics
	logger    *log.Entry
	now       func() time.Time
}

// Option настраивает Service при создании.
type Option func(*Service)

// WithEventPublisher подключает публикацию событий жизненного цикла заказа.
func WithEventPublisher(publisher domain.OrderEventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithMetrics подключает метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock подменяет источник времени; используется тестами проверки
// правила "дата не в будущем".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис заказов.
func NewService(repo domain.OrderRepository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: log.New().WithField("component", "order_service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create регистрирует новый заказ. Заказ всегда создаётся в статусе Pending,
// итог пересчитывается из позиций, а значение из запроса игнорируется.
// Второй заказ того же клиента в тот же календарный день отклоняется
// с конфликтом.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	start := s.now()
	defer func() {
		s.metrics.RecordOperationDuration("create", s.now().Sub(start))
	}()

	customer := strings.TrimSpace(req.Customer)
	if err := s.validateOrderFields(customer, req.Date, req.Details, true); err != nil {
		s.metrics.RecordValidationFailure()
		return domain.Order{}, err
	}

	exists, err := s.repo.ExistsOnDate(ctx, customer, req.Date)
	if err != nil {
		s.metrics.RecordStorageFailure()
		s.logger.WithError(err).Error("duplicate check failed")
		return domain.Order{}, domain.NewStorageFault("failed to check for existing orders")
	}
	if exists {
		s.metrics.RecordDuplicateConflict()
		return domain.Order{}, domain.NewConflictFault(
			fmt.Sprintf("customer %q already has an order on %s", customer, req.Date.Format("2006-01-02")))
	}

	order := buildOrder(0, req.Date, customer, domain.OrderStatusPending, req.Details)

	if err := s.repo.Create(ctx, &order); err != nil {
		if errors.Is(err, domain.ErrDuplicateOrder) {
			// Конкурентное создание проиграло гонку уникальному индексу.
			s.metrics.RecordDuplicateConflict()
			return domain.Order{}, domain.NewConflictFault(
				fmt.Sprintf("customer %q already has an order on %s", customer, req.Date.Format("2006-01-02")))
		}
		s.metrics.RecordStorageFailure()
		s.logger.WithError(err).Error("order create failed")
		return domain.Order{}, domain.NewStorageFault("failed to store order")
	}

	s.metrics.RecordOrderCreated()
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"customer": order.Customer,
		"total":    order.Total.StringFixed(2),
	}).Info("order registered")
	s.publish(domain.OrderEventCreated, order)

	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, id int64) (domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, domain.NewNotFoundFault(fmt.Sprintf("order %d does not exist", id))
		}
		s.metrics.RecordStorageFailure()
		s.logger.WithError(err).WithField("order_id", id).Error("order fetch failed")
		return domain.Order{}, domain.NewStorageFault("failed to load order")
	}
	return order, nil
}

// List возвращает страницу заказов. Номер страницы и размер нормализуются:
// страница не меньше 1, размер по умолчанию 10 и не больше 100.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) (PagedResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	paged, err := s.repo.GetPaged(ctx, domain.PageQuery{
		Page:           page,
		PageSize:       pageSize,
		CustomerFilter: strings.TrimSpace(req.Customer),
		DateFrom:       req.DateFrom,
		DateTo:         req.DateTo,
	})
	if err != nil {
		s.metrics.RecordStorageFailure()
		s.logger.WithError(err).Error("order list failed")
		return PagedResult{}, domain.NewStorageFault("failed to list orders")
	}

	totalPages := 0
	if paged.TotalCount > 0 {
		totalPages = (paged.TotalCount + pageSize - 1) / pageSize
	}

	return PagedResult{
		Items:       paged.Orders,
		Page:        page,
		PageSize:    pageSize,
		TotalCount:  paged.TotalCount,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}, nil
}

// Update полностью заменяет шапку и позиции существующего заказа.
// Статус сохраняется прежним, присланные идентификаторы позиций игнорируются,
// правило дубликата на дату повторно не проверяется. Правило "дата не в
// будущем" действует только при создании.
func (s *Service) Update(ctx context.Context, req UpdateOrderRequest) (domain.Order, error) {
	start := s.now()
	defer func() {
		s.metrics.RecordOperationDuration("update", s.now().Sub(start))
	}()

	existing, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, domain.NewNotFoundFault(fmt.Sprintf("order %d does not exist", req.ID))
		}
		s.metrics.RecordStorageFailure()
		s.logger.WithError(err).WithField("order_id", req.ID).Error("order fetch failed")
		return domain.Order{}, domain.NewStorageFault("failed to load order")
	}

	customer := strings.TrimSpace(req.Customer)
	if err := s.validateOrderFields(customer, req.Date, req.Details, false); err != nil {
		s.metrics.RecordValidationFailure()
		return domain.Order{}, err
	}

	order := buildOrder(existing.ID, req.Date, customer, existing.Status, req.Details)

	if err := s.repo.Replace(ctx, &order); err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			return domain.Order{}, domain.NewNotFoundFault(fmt.Sprintf("order %d does not exist", req.ID))
		case errors.Is(err, domain.ErrDuplicateOrder):
			s.metrics.RecordDuplicateConflict()
			return domain.Order{}, domain.NewConflictFault(
				fmt.Sprintf("customer %q already has an order on %s", customer, req.Date.Format("2006-01-02")))
		}
		s.metrics.RecordStorageFailure()
		s.logger.WithError(err).WithField("order_id", req.ID).Error("order update failed")
		return domain.Order{}, domain.NewStorageFault("failed to update order")
	}

	s.metrics.RecordOrderUpdated()
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"customer": order.Customer,
		"total":    order.Total.StringFixed(2),
	}).Info("order updated")
	s.publish(domain.OrderEventUpdated, order)

	return order, nil
}

// Delete удаляет заказ вместе с позициями.
func (s *Service) Delete(ctx context.Context, id int64) error {
	start := s.now()
	defer func() {
		s.metrics.RecordOperationDuration("delete", s.now().Sub(start))
	}()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.NewNotFoundFault(fmt.Sprintf("order %d does not exist", id))
		}
		s.metrics.RecordStorageFailure()
		s.logger.WithError(err).WithField("order_id", id).Error("order fetch failed")
		return domain.NewStorageFault("failed to load order")
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.metrics.RecordStorageFailure()
		s.logger.WithError(err).WithField("order_id", id).Error("order delete failed")
		return domain.NewStorageFault("failed to delete order")
	}
	if !ok {
		return domain.NewNotFoundFault(fmt.Sprintf("order %d does not exist", id))
	}

	s.metrics.RecordOrderDeleted()
	s.logger.WithField("order_id", id).Info("order deleted")
	s.publish(domain.OrderEventDeleted, order)

	return nil
}

func (s *Service) validateOrderFields(customer string, date time.Time, details []DetailInput, isCreate bool) error {
	if len(customer) < customerMinLen || len(customer) > customerMaxLen {
		return domain.NewValidationFault(
			fmt.Sprintf("customer name must be between %d and %d characters", customerMinLen, customerMaxLen))
	}
	if date.IsZero() {
		return domain.NewValidationFault("order date is required")
	}
	if isCreate && date.After(s.now()) {
		return domain.NewValidationFault("order date cannot be in the future")
	}
	if len(details) == 0 {
		return domain.NewValidationFault("order must contain at least one detail line")
	}
	for i, d := range details {
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

func (s *Service) publish(eventType domain.OrderEventType, order domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(eventType, order); err != nil {
		// Публикация не входит в транзакцию: бизнес-результат уже зафиксирован.
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": string(eventType),
		}).Warn("order event publish failed")
	}
}

func buildOrder(id int64, date time.Time, customer string, status domain.OrderStatus, details []DetailInput) domain.Order {
	order := domain.Order{
		ID:       id,
		Date:     date,
		Customer: customer,
		Status:   status,
		Details:  make([]domain.OrderDetail, 0, len(details)),
	}
	for _, d := range details {
		order.Details = append(order.Details, domain.OrderDetail{
			OrderID:   id,
			Product:   strings.TrimSpace(d.Product),
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
		})
	}
	order.ComputeTotal()
	return order
}
