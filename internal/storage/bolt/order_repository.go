package bolt

import (
	"bytes"
	"encoding/gob"
	"fmt"

	boltdb "github.com/boltdb/bolt"

	"github.com/vladislavdragonenkov/opr/internal/domain"
)

// OrderRepository хранит заказы в bolt: ключ -- id заказа, значение -- gob.
type OrderRepository struct {
	db *boltdb.DB
}

// NewOrderRepository создаёт bolt-реализацию OrderRepository.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{db: store.db}
}

// Save выполняет ровно одну попытку записи заказа.
// Повторная запись того же id возвращает ErrStorageConflict,
// закрытая база -- ErrStorageUnavailable. Аргумент не изменяется.
func (r *OrderRepository) Save(order domain.Order) error {
	if order.ID == "" {
		return fmt.Errorf("%w: %w", domain.ErrStorageInvalid, domain.ErrOrderIDRequired)
	}

	value, err := encodeOrder(order)
	if err != nil {
		return fmt.Errorf("%w: encode order %s: %w", domain.ErrStorageInvalid, order.ID, err)
	}

	err = r.db.Update(func(tx *boltdb.Tx) error {
		bucket := tx.Bucket(ordersBucket)
		if bucket == nil {
			return fmt.Errorf("%w: orders bucket is missing", domain.ErrStorageUnavailable)
		}
		if bucket.Get([]byte(order.ID)) != nil {
			return fmt.Errorf("%w: order %s already stored", domain.ErrStorageConflict, order.ID)
		}
		return bucket.Put([]byte(order.ID), value)
	})

	switch {
	case err == nil:
		return nil
	case domain.IsStorageConflict(err), domain.IsStorageInvalid(err), domain.IsStorageUnavailable(err):
		return err
	default:
		// Ошибки самой базы (закрытый файл, I/O) считаются недоступностью
		return fmt.Errorf("%w: save order %s: %w", domain.ErrStorageUnavailable, order.ID, err)
	}
}

// Get читает сохранённый заказ. Вторым значением возвращает false,
// если заказа с таким id нет.
func (r *OrderRepository) Get(id string) (domain.Order, bool, error) {
	var (
		order domain.Order
		found bool
	)

	err := r.db.View(func(tx *boltdb.Tx) error {
		bucket := tx.Bucket(ordersBucket)
		if bucket == nil {
			return fmt.Errorf("orders bucket is missing")
		}

		value := bucket.Get([]byte(id))
		if value == nil {
			return nil
		}

		decoded, err := decodeOrder(value)
		if err != nil {
			return err
		}
		order = decoded
		found = true
		return nil
	})
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("%w: get order %s: %w", domain.ErrStorageUnavailable, id, err)
	}

	return order, found, nil
}

// Len возвращает количество сохранённых заказов.
func (r *OrderRepository) Len() (int, error) {
	var count int
	err := r.db.View(func(tx *boltdb.Tx) error {
		bucket := tx.Bucket(ordersBucket)
		if bucket == nil {
			return fmt.Errorf("orders bucket is missing")
		}
		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count orders: %w", domain.ErrStorageUnavailable, err)
	}
	return count, nil
}

func encodeOrder(order domain.Order) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(order); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeOrder(data []byte) (domain.Order, error) {
	var order domain.Order
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
