package placement

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/opr/internal/domain"
	"github.com/vladislavdragonenkov/opr/internal/metrics"
)

// Placer описывает операцию размещения заказа.
type Placer interface {
	// Place проверяет предусловия, ровно один раз обращается к хранилищу
	// и возвращает копию заказа с итоговым статусом.
	Place(order domain.Order) (domain.Order, error)
}

// Service — use case размещения заказа. Зависит только от контракта
// OrderRepository; конкретный адаптер внедряется через конструктор.
type Service struct {
	repo    domain.OrderRepository
	logger  *log.Entry
	metrics *metrics.PlacementMetrics
}

// NewService создаёт рабочий экземпляр use case.
func NewService(repo domain.OrderRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "placement")
	}
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics.NewPlacementMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт use case без метрик (для тестов).
func NewServiceWithoutMetrics(repo domain.OrderRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "placement")
	}
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: nil, // Отключаем метрики для тестов
	}
}

// Place выполняет размещение заказа.
//
// Предусловия: статус pending и непустой список позиций; при нарушении
// возвращается исходный заказ без изменений и ошибка ErrInvalidOrder,
// хранилище не вызывается. Иначе делается ровно один вызов Save: при успехе
// возвращается копия со статусом placed, при отказе — копия со статусом
// failed и ошибка ErrPersistenceFailed, сохраняющая класс ошибки хранилища.
func (s *Service) Place(order domain.Order) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordPlacementStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordPlacementDuration(time.Since(start))
			s.metrics.RecordPlacementInFlightFinished()
		}
	}()

	if order.Status != domain.OrderStatusPending {
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Warn("placement rejected: order is not pending")
		if s.metrics != nil {
			s.metrics.RecordPlacementRejected()
		}
		return order, fmt.Errorf("place order %s: %w: %w", order.ID, domain.ErrInvalidOrder, domain.ErrOrderNotPending)
	}

	if len(order.Items) == 0 {
		s.logger.WithField("order_id", order.ID).Warn("placement rejected: order has no items")
		if s.metrics != nil {
			s.metrics.RecordPlacementRejected()
		}
		return order, fmt.Errorf("place order %s: %w: %w", order.ID, domain.ErrInvalidOrder, domain.ErrItemsRequired)
	}

	saveStart := time.Now()
	err := s.repo.Save(order)
	if s.metrics != nil {
		s.metrics.RecordSaveDuration(time.Since(saveStart))
	}
	if err != nil {
		kind := domain.StorageErrorKind(err)
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"kind":     kind,
		}).Error("placement failed: storage error")
		if s.metrics != nil {
			s.metrics.RecordOrderFailed(kind)
		}

		failed := order.Clone()
		failed.Status = domain.OrderStatusFailed
		failed.UpdatedAt = time.Now().UTC()
		return failed, fmt.Errorf("place order %s: %w: %w", order.ID, domain.ErrPersistenceFailed, err)
	}

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"items_count": len(order.Items),
	}).Info("order placed")
	if s.metrics != nil {
		s.metrics.RecordOrderPlaced()
	}

	placed := order.Clone()
	placed.Status = domain.OrderStatusPlaced
	placed.UpdatedAt = time.Now().UTC()
	return placed, nil
}

// noopPlacer подтверждает размещение без обращения к хранилищу (dry-run режим).
type noopPlacer struct {
	logger *log.Entry
}

// NewNoop возвращает Placer для dry-run запуска: предусловия проверяются
// как обычно, но вместо сохранения заказ сразу помечается placed.
func NewNoop(logger *log.Entry) Placer {
	if logger == nil {
		logger = log.New().WithField("component", "placement-noop")
	}
	return &noopPlacer{logger: logger}
}

func (n *noopPlacer) Place(order domain.Order) (domain.Order, error) {
	if order.Status != domain.OrderStatusPending {
		return order, fmt.Errorf("place order %s: %w: %w", order.ID, domain.ErrInvalidOrder, domain.ErrOrderNotPending)
	}
	if len(order.Items) == 0 {
		return order, fmt.Errorf("place order %s: %w: %w", order.ID, domain.ErrInvalidOrder, domain.ErrItemsRequired)
	}

	n.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"ts":       time.Now().UTC().Format(time.RFC3339Nano),
	}).Info("placement noop invoked, order not persisted")

	placed := order.Clone()
	placed.Status = domain.OrderStatusPlaced
	placed.UpdatedAt = time.Now().UTC()
	return placed, nil
}

var _ Placer = (*Service)(nil)
var _ Placer = (*noopPlacer)(nil)
