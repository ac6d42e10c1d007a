package domain

import "errors"

var (
	// ErrOrderNotFound возвращается хранилищем, если заказ отсутствует.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrder возвращается хранилищем при нарушении уникальности
	// пары (клиент, дата) на уровне базы данных.
	ErrDuplicateOrder = errors.New("order already exists for customer and date")
)

// FaultKind классифицирует структурированную бизнес-ошибку.
type FaultKind string

const (
	// FaultValidation — входные данные нарушают бизнес-правила.
	FaultValidation FaultKind = "validation"
	// FaultNotFound — запрошенный заказ не существует.
	FaultNotFound FaultKind = "not_found"
	// FaultConflict — дубликат заказа клиента на ту же дату.
	FaultConflict FaultKind = "conflict"
	// FaultStorage — сбой хранилища, не связанный с бизнес-правилами.
	FaultStorage FaultKind = "storage"
)

// Fault — структурированная ошибка бизнес-уровня: вид, числовой код категории
// (400 валидация, 404 не найдено, 409 конфликт, 500 сбой хранилища) и
// человекочитаемое сообщение. Транспортный слой транслирует код в свой статус.
type Fault struct {
	Kind    FaultKind
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return f.Message
}

// NewValidationFault создаёт ошибку валидации входных данных.
func NewValidationFault(message string) *Fault {
	return &Fault{Kind: FaultValidation, Code: 400, Message: message}
}

// NewNotFoundFault создаёт ошибку отсутствия заказа.
func NewNotFoundFault(message string) *Fault {
	return &Fault{Kind: FaultNotFound, Code: 404, Message: message}
}

// NewConflictFault создаёт ошибку дублирования заказа.
func NewConflictFault(message string) *Fault {
	return &Fault{Kind: FaultConflict, Code: 409, Message: message}
}

// NewStorageFault создаёт ошибку сбоя хранилища.
func NewStorageFault(message string) *Fault {
	return &Fault{Kind: FaultStorage, Code: 500, Message: message}
}

// AsFault извлекает *Fault из цепочки ошибок.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsNotFound проверяет, является ли ошибка отсутствием заказа — как sentinel
// хранилища, так и Fault сервисного слоя.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrOrderNotFound) {
		return true
	}
	if f, ok := AsFault(err); ok {
		return f.Kind == FaultNotFound
	}
	return false
}
