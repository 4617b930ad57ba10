package placement

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/opr/internal/domain"
)

// RetryConfig конфигурация для retry логики.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryablePlacer оборачивает Placer retry логикой. Сам контракт хранилища
// повторных попыток не делает, поэтому политика повторов живёт здесь,
// на стороне вызывающего.
type RetryablePlacer struct {
	placer Placer
	config RetryConfig
	logger *log.Entry
}

// NewRetryablePlacer создаёт Placer с retry логикой поверх базового.
func NewRetryablePlacer(placer Placer, config RetryConfig, logger *log.Entry) *RetryablePlacer {
	if logger == nil {
		logger = log.New().WithField("component", "retryable-placer")
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	return &RetryablePlacer{
		placer: placer,
		config: config,
		logger: logger,
	}
}

// Place повторяет размещение при транзиентных отказах хранилища.
// Каждая попытка получает исходный pending-заказ: failed-копия предыдущей
// попытки уже не проходит предусловия и повторно не отправляется.
func (rp *RetryablePlacer) Place(order domain.Order) (domain.Order, error) {
	var lastResult domain.Order
	var lastErr error
	delay := rp.config.InitialDelay

	for attempt := 1; attempt <= rp.config.MaxAttempts; attempt++ {
		result, err := rp.placer.Place(order)
		if err == nil {
			if attempt > 1 {
				rp.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt,
				}).Info("placement succeeded after retry")
			}
			return result, nil
		}

		lastResult, lastErr = result, err

		if !rp.shouldRetry(err) {
			rp.logger.WithFields(log.Fields{
				"order_id": order.ID,
				"error":    err,
			}).Warn("placement failed with non-retryable error")
			return result, err
		}

		if attempt < rp.config.MaxAttempts {
			rp.logger.WithFields(log.Fields{
				"order_id": order.ID,
				"attempt":  attempt,
				"delay":    delay,
				"error":    err,
			}).Warn("placement failed, retrying")

			time.Sleep(delay)

			// Экспоненциальная задержка с ограничением
			delay = time.Duration(float64(delay) * rp.config.BackoffFactor)
			if delay > rp.config.MaxDelay {
				delay = rp.config.MaxDelay
			}
		}
	}

	rp.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"max_attempts": rp.config.MaxAttempts,
		"error":        lastErr,
	}).Error("placement failed after all retry attempts")
	return lastResult, lastErr
}

// shouldRetry определяет, стоит ли повторять размещение при данной ошибке.
func (rp *RetryablePlacer) shouldRetry(err error) bool {
	// Нарушения предусловий детерминированы, повтор ничего не изменит.
	if domain.IsInvalidOrder(err) {
		return false
	}
	// Conflict и Invalid детерминированы на стороне хранилища.
	if domain.IsStorageConflict(err) || domain.IsStorageInvalid(err) {
		return false
	}

	// Повторяем только явно транзиентный класс: для неклассифицированной
	// ошибки неизвестно, завершилась ли запись, и повтор может
	// продублировать её.
	return domain.IsStorageUnavailable(err)
}

// CircuitBreaker простая реализация circuit breaker паттерна.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration

	failures    int
	lastFailure time.Time
	state       CircuitState
	logger      *log.Entry
}

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// NewCircuitBreaker создаёт новый circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.New().WithField("component", "circuit-breaker")
	}

	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
		logger:       logger,
	}
}

// Execute выполняет операцию через circuit breaker.
func (cb *CircuitBreaker) Execute(operation string, fn func() error) error {
	if cb.state == CircuitOpen {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
			cb.logger.WithField("operation", operation).Info("Circuit breaker half-open")
		} else {
			return errors.New("circuit breaker is open")
		}
	}

	err := fn()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()

		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.logger.WithFields(log.Fields{
				"operation": operation,
				"failures":  cb.failures,
			}).Warn("Circuit breaker opened")
		}

		return err
	}

	// Успешное выполнение - сбрасываем счётчик
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.logger.WithField("operation", operation).Info("Circuit breaker closed")
	}
	cb.failures = 0

	return nil
}

// CircuitBreakerPlacer — Placer с circuit breaker защитой хранилища.
type CircuitBreakerPlacer struct {
	placer  Placer
	breaker *CircuitBreaker
	logger  *log.Entry
}

// NewCircuitBreakerPlacer создаёт Placer с circuit breaker.
func NewCircuitBreakerPlacer(placer Placer, breaker *CircuitBreaker, logger *log.Entry) *CircuitBreakerPlacer {
	if logger == nil {
		logger = log.New().WithField("component", "circuit-breaker-placer")
	}
	return &CircuitBreakerPlacer{
		placer:  placer,
		breaker: breaker,
		logger:  logger,
	}
}

// Place выполняет размещение через circuit breaker. Breaker открывают только
// отказы хранилища; нарушения предусловий проходят насквозь и не считаются.
func (cp *CircuitBreakerPlacer) Place(order domain.Order) (domain.Order, error) {
	var result domain.Order
	var placeErr error

	err := cp.breaker.Execute("Place", func() error {
		result, placeErr = cp.placer.Place(order)
		if domain.IsPersistenceFailed(placeErr) {
			return placeErr
		}
		return nil
	})

	if err != nil && placeErr == nil {
		// Breaker открыт: вызов до хранилища не дошёл, заказ не менялся.
		cp.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"error":    err,
		}).Error("placement blocked by circuit breaker")
		return order, fmt.Errorf("place order %s: %w", order.ID, err)
	}

	return result, placeErr
}

var _ Placer = (*RetryablePlacer)(nil)
var _ Placer = (*CircuitBreakerPlacer)(nil)
