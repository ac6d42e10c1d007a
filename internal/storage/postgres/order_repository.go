package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		order  domain.Order
		status string
		total  string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_date, customer, total, status
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.Date, &order.Customer, &total, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return domain.Order{}, fmt.Errorf("parse order total: %w", err)
	}

	details, err := r.loadDetails(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Details = details

	return order, nil
}

func (r *orderRepository) GetAll(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_date, customer, total, status
		FROM orders
		ORDER BY order_date DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		details, err := r.loadDetails(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Details = details
	}

	return orders, nil
}

func (r *orderRepository) GetPaged(ctx context.Context, query domain.PageQuery) (domain.PagedOrders, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where := " WHERE 1=1"
	args := make([]any, 0, 3)
	if query.CustomerFilter != "" {
		args = append(args, "%"+query.CustomerFilter+"%")
		where += fmt.Sprintf(" AND customer ILIKE $%d", len(args))
	}
	if query.DateFrom != nil {
		args = append(args, *query.DateFrom)
		where += fmt.Sprintf(" AND order_date >= $%d", len(args))
	}
	if query.DateTo != nil {
		args = append(args, *query.DateTo)
		where += fmt.Sprintf(" AND order_date <= $%d", len(args))
	}

	// Сначала total по фильтру, затем страница; страница за пределами
	// диапазона возвращает пустой список с тем же total.
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return domain.PagedOrders{}, fmt.Errorf("count orders: %w", err)
	}

	pageArgs := append(args, query.PageSize, query.Offset())
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, order_date, customer, total, status
		FROM orders
		%s
		ORDER BY order_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return domain.PagedOrders{}, fmt.Errorf("list orders page: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return domain.PagedOrders{}, err
	}

	for i := range orders {
		details, err := r.loadDetails(ctx, orders[i].ID)
		if err != nil {
			return domain.PagedOrders{}, err
		}
		orders[i].Details = details
	}

	return domain.PagedOrders{Orders: orders, TotalCount: total}, nil
}

func (r *orderRepository) ExistsOnDate(ctx context.Context, customer string, date time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	start, end := domain.DayBounds(date.UTC())

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE customer = $1
			  AND order_date BETWEEN $2 AND $3
		)
	`, customer, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order exists on date: %w", err)
	}

	return exists, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_date, customer, total, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		order.Date, order.Customer, order.Total.StringFixed(2), string(order.Status),
	).Scan(&order.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Details {
		d := &order.Details[i]
		d.OrderID = order.ID
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO order_details (order_id, product, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, order.ID, d.Product, d.Quantity, d.UnitPrice.StringFixed(2)).Scan(&d.ID); err != nil {
			return fmt.Errorf("insert order detail: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Replace(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET order_date = $1,
		    customer = $2,
		    total = $3,
		    status = $4
		WHERE id = $5
	`,
		order.Date, order.Customer, order.Total.StringFixed(2), string(order.Status), order.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateOrder
		}
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOrderNotFound
		return err
	}

	// Старые позиции отбрасываются целиком и вставляются заново.
	if _, err = tx.ExecContext(ctx, `DELETE FROM order_details WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("delete order details: %w", err)
	}
	for i := range order.Details {
		d := &order.Details[i]
		d.OrderID = order.ID
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO order_details (order_id, product, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, order.ID, d.Product, d.Quantity, d.UnitPrice.StringFixed(2)).Scan(&d.ID); err != nil {
			return fmt.Errorf("insert order detail: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace order: %w", err)
	}

	return nil
}

func (r *orderRepository) SetStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Позиции удаляются каскадом по FK.
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *orderRepository) loadDetails(ctx context.Context, orderID int64) ([]domain.OrderDetail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product, quantity, unit_price
		FROM order_details
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order details: %w", err)
	}
	defer rows.Close()

	details := make([]domain.OrderDetail, 0)
	for rows.Next() {
		var (
			d     domain.OrderDetail
			price string
		)
		if err := rows.Scan(&d.ID, &d.OrderID, &d.Product, &d.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		if d.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse detail price: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order details: %w", err)
	}

	return details, nil
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			order  domain.Order
			status string
			total  string
		)
		if err := rows.Scan(&order.ID, &order.Date, &order.Customer, &total, &status); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Status = domain.OrderStatus(status)
		var err error
		if order.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse order total: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
