package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix   = "opr:orders:"
	defaultDialTimeout = 3 * time.Second
	defaultIOTimeout   = 2 * time.Second
)

// Config задаёт параметры подключения к Redis.
type Config struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// Store оборачивает подключение к Redis.
type Store struct {
	client    *goredis.Client
	keyPrefix string
}

// Open создаёт клиент Redis и проверяет доступность PING-ом.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	opts := &goredis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		// Контракт хранилища: ровно одна попытка записи, поэтому
		// внутренние retry клиента выключены
		MaxRetries:   -1,
		DialTimeout:  defaultDuration(cfg.DialTimeout, defaultDialTimeout),
		ReadTimeout:  defaultDuration(cfg.ReadTimeout, defaultIOTimeout),
		WriteTimeout: defaultDuration(cfg.WriteTimeout, defaultIOTimeout),
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	return &Store{client: client, keyPrefix: keyPrefix}, nil
}

// Client возвращает raw клиент, когда нужен низкоуровневый доступ.
func (s *Store) Client() *goredis.Client {
	return s.client
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	return s.client.Ping(pingCtx).Err()
}

// Close закрывает подключение.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func defaultDuration(v, d time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return d
}
