package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/opr/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	pgUniqueViolation = "23505"
)

// OrderRepository хранит заказы в PostgreSQL: строка в orders плюс
// позиции в order_items, записанные одной транзакцией.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{db: store.DB()}
}

// Save выполняет ровно одну попытку записи заказа.
// Заказ с уже существующим id возвращает ErrStorageConflict,
// нарушение ограничений схемы -- ErrStorageInvalid, всё остальное --
// ErrStorageUnavailable. Аргумент не изменяется.
func (r *OrderRepository) Save(order domain.Order) error {
	if order.ID == "" {
		return fmt.Errorf("%w: %w", domain.ErrStorageInvalid, domain.ErrOrderIDRequired)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Timestamp-колонки NOT NULL: для заказов без временных меток
	// подставляем текущее время, не трогая сам аргумент
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := order.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", domain.ErrStorageUnavailable, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5)
	`,
		order.ID, order.CustomerID, string(order.Status), createdAt, updatedAt,
	)
	if err != nil {
		return classifyPgError("insert order", err)
	}

	for position, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, position, sku, qty, price_minor
			) VALUES ($1,$2,$3,$4,$5)
		`,
			order.ID, position, item.SKU, item.Qty, item.PriceMinor,
		); err != nil {
			return classifyPgError("insert order item", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit save order: %w", domain.ErrStorageUnavailable, err)
	}

	return nil
}

// Get читает сохранённый заказ. Вторым значением возвращает false,
// если заказа с таким id нет.
func (r *OrderRepository) Get(id string) (domain.Order, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var order domain.Order
	var status string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.CustomerID, &status, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, fmt.Errorf("%w: select order: %w", domain.ErrStorageUnavailable, err)
	}
	order.Status = domain.OrderStatus(status)

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, false, err
	}
	order.Items = items

	return order, true, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku, qty, price_minor
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: load order items: %w", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.SKU, &item.Qty, &item.PriceMinor); err != nil {
			return nil, fmt.Errorf("%w: scan order item: %w", domain.ErrStorageUnavailable, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate order items: %w", domain.ErrStorageUnavailable, err)
	}

	return items, nil
}

// classifyPgError переводит ошибку драйвера в категорию хранилища.
// Уникальный индекс -- conflict; нарушения данных и ограничений
// (классы 22 и 23) -- invalid; всё остальное считается недоступностью.
func classifyPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return fmt.Errorf("%w: %s: %w", domain.ErrStorageConflict, op, err)
		case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"):
			return fmt.Errorf("%w: %s: %w", domain.ErrStorageInvalid, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
