package domain

import (
	"context"
	"time"
)

// PageQuery задаёт параметры постраничной выборки заказов.
type PageQuery struct {
	// Page — номер страницы, начиная с 1.
	Page int
	// PageSize — размер страницы, не меньше 1.
	PageSize int
	// CustomerFilter — подстрочный фильтр по имени клиента без учёта регистра;
	// пустая строка отключает фильтр.
	CustomerFilter string
	// DateFrom/DateTo — включительные границы диапазона дат; nil отключает границу.
	DateFrom *time.Time
	DateTo   *time.Time
}

// Offset возвращает смещение выборки для текущей страницы.
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// PagedOrders — страница заказов вместе с общим числом совпадений,
// посчитанным до применения пагинации.
type PagedOrders struct {
	Orders     []Order
	TotalCount int
}

// OrderRepository описывает требования к хранилищу заказов.
// Бизнес-инварианты (дубликат на дату, валидность агрегата) проверяет
// сервисный слой до вызова Create/Replace; хранилище отвечает за атомарность
// каждой операции и честные ошибки ввода-вывода.
type OrderRepository interface {
	// GetByID возвращает заказ с загруженными позициями или ErrOrderNotFound.
	GetByID(ctx context.Context, id int64) (Order, error)
	// GetAll возвращает все заказы без пагинации.
	GetAll(ctx context.Context) ([]Order, error)
	// GetPaged применяет фильтры запроса, считает совпадения до пагинации и
	// возвращает страницу, отсортированную по дате по убыванию.
	GetPaged(ctx context.Context, query PageQuery) (PagedOrders, error)
	// ExistsOnDate проверяет, есть ли заказ клиента в указанный календарный
	// день; время суток внутри дня не учитывается.
	ExistsOnDate(ctx context.Context, customer string, date time.Time) (bool, error)
	// Create присваивает свежие идентификаторы и атомарно сохраняет шапку
	// вместе с позициями, записывая идентификаторы обратно в переданный заказ.
	Create(ctx context.Context, order *Order) error
	// Replace перезаписывает шапку существующего заказа и полностью заменяет
	// сохранённый набор позиций набором из order; старые позиции удаляются,
	// слияния по идентификаторам не происходит.
	Replace(ctx context.Context, order *Order) error
	// SetStatus меняет только статус заказа, не трогая шапку и позиции;
	// используется фоновым процессором для перехода Pending -> Processed.
	SetStatus(ctx context.Context, id int64, status OrderStatus) error
	// Delete удаляет заказ каскадно вместе с позициями; false — если заказа
	// не существовало.
	Delete(ctx context.Context, id int64) (bool, error)
}
