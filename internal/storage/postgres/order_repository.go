package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

const orderColumns = `id, owner_id, status, total_amount, note, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
// Идентификаторы выдаёт BIGSERIAL, поэтому они монотонны и начинаются с 1.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// queryer — общее подмножество *sql.DB и *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) Insert(order domain.Order) (stored domain.Order, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stored = order.Clone()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (owner_id, status, total_amount, note, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`,
		stored.OwnerID, string(stored.Status), stored.TotalAmount,
		stored.Note, stored.CreatedAt, stored.UpdatedAt,
	).Scan(&stored.ID)
	if err != nil {
		if isConstraintViolation(err) {
			return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for pos, item := range stored.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5)
		`, stored.ID, pos, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			if isConstraintViolation(err) {
				return domain.Order{}, fmt.Errorf("%w: item[%d]: %v", domain.ErrValidationFailed, pos, err)
			}
			return domain.Order{}, fmt.Errorf("insert order item %d: %w", pos, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit insert order: %w", err)
	}

	return stored, nil
}

func (r *orderRepository) Get(id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return domain.Order{}, err
	}

	if order.Items, err = loadItems(ctx, r.db, order.ID); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) ListByOwner(ownerID int64) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY id ASC`, ownerID)
}

func (r *orderRepository) ListAll() ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id ASC`)
}

// Update блокирует строку заказа (SELECT ... FOR UPDATE), применяет mutate
// и сохраняет результат в той же транзакции. Позиции заказа неизменны.
func (r *orderRepository) Update(id int64, mutate func(*domain.Order) error) (updated domain.Order, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return domain.Order{}, err
	}
	if current.Items, err = loadItems(ctx, tx, id); err != nil {
		return domain.Order{}, err
	}

	updated = current.Clone()
	if err = mutate(&updated); err != nil {
		return domain.Order{}, err
	}
	updated.ID = current.ID
	updated.OwnerID = current.OwnerID

	if _, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    note = $3,
		    updated_at = $4
		WHERE id = $1
	`, updated.ID, string(updated.Status), updated.Note, updated.UpdatedAt); err != nil {
		if isConstraintViolation(err) {
			return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
		}
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit update order: %w", err)
	}

	updated.Items = current.Items
	updated.TotalAmount = current.TotalAmount
	updated.CreatedAt = current.CreatedAt
	return updated, nil
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	_ = rows.Close()

	for i := range orders {
		items, err := loadItems(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
		note   sql.NullString
	)
	err := row.Scan(&order.ID, &order.OwnerID, &status, &order.TotalAmount, &note, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}

	order.Status = domain.OrderStatus(status)
	if note.Valid {
		order.Note = &note.String
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return order, nil
}

func loadItems(ctx context.Context, q queryer, orderID int64) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

// isConstraintViolation распознаёт нарушения CHECK (23514), уникальности (23505)
// и выход числа за пределы колонки (22003).
func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514", "23505", "22003":
			return true
		}
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
