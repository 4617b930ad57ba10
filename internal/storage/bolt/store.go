package bolt

import (
	"fmt"
	"time"

	boltdb "github.com/boltdb/bolt"
)

var ordersBucket = []byte("orders")

// Store оборачивает локальную bolt-базу: один файл с file lock,
// вариант хранилища для единственного инстанса без внешних зависимостей.
type Store struct {
	db *boltdb.DB
}

// Open открывает файл базы и создаёт bucket заказов.
func Open(path string) (*Store, error) {
	db, err := boltdb.Open(path, 0o600, &boltdb.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	if err := db.Update(func(tx *boltdb.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ordersBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure orders bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping проверяет, что база открыта и bucket заказов на месте.
func (s *Store) Ping() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("bolt store is not initialized")
	}

	return s.db.View(func(tx *boltdb.Tx) error {
		if tx.Bucket(ordersBucket) == nil {
			return fmt.Errorf("orders bucket is missing")
		}
		return nil
	})
}

// Close закрывает базу и освобождает file lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
