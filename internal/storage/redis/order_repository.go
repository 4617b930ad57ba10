package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/opr/internal/domain"
)

const opTimeout = 5 * time.Second

// OrderRepository хранит заказы в Redis: ключ с префиксом, значение -- JSON.
// Create-once семантика достигается через SET NX.
type OrderRepository struct {
	client    *goredis.Client
	keyPrefix string
	tracer    trace.Tracer
}

// NewOrderRepository создаёт Redis-реализацию OrderRepository.
// Если tracer равен nil, берётся tracer глобального провайдера.
func NewOrderRepository(store *Store, tracer trace.Tracer) *OrderRepository {
	if tracer == nil {
		tracer = otel.Tracer("opr/storage/redis")
	}
	return &OrderRepository{
		client:    store.client,
		keyPrefix: store.keyPrefix,
		tracer:    tracer,
	}
}

// Save выполняет ровно одну попытку записи заказа.
// Занятый ключ возвращает ErrStorageConflict, сетевые сбои --
// ErrStorageUnavailable. Аргумент не изменяется.
func (r *OrderRepository) Save(order domain.Order) error {
	if order.ID == "" {
		return fmt.Errorf("%w: %w", domain.ErrStorageInvalid, domain.ErrOrderIDRequired)
	}

	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("%w: marshal order %s: %w", domain.ErrStorageInvalid, order.ID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "redis.SaveOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", order.ID))

	stored, err := r.client.SetNX(ctx, r.key(order.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: redis setnx: %w", domain.ErrStorageUnavailable, err)
	}
	if !stored {
		return fmt.Errorf("%w: order %s already stored", domain.ErrStorageConflict, order.ID)
	}

	return nil
}

// Get читает сохранённый заказ. Вторым значением возвращает false,
// если заказа с таким id нет.
func (r *OrderRepository) Get(id string) (domain.Order, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "redis.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", id))

	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, fmt.Errorf("%w: redis get: %w", domain.ErrStorageUnavailable, err)
	}

	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return domain.Order{}, false, fmt.Errorf("%w: unmarshal order %s: %w", domain.ErrStorageInvalid, id, err)
	}

	return order, true, nil
}

func (r *OrderRepository) key(id string) string {
	return r.keyPrefix + id
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
