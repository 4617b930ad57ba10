package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/opr/internal/domain"
	"github.com/vladislavdragonenkov/opr/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/opr/internal/service/placement"
)

var (
	intakeDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opr_intake_documents_total",
		Help: "Total number of intake documents grouped by result.",
	}, []string{"result"})
	intakeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opr_intake_processing_duration_seconds",
		Help:    "Time spent handling a single intake document.",
		Buckets: prometheus.DefBuckets,
	})
)

// EventPublisher публикует события исхода размещения.
type EventPublisher interface {
	PublishOrderEvent(topic string, event *kafka.OrderEvent) error
}

// ServiceOptions задаёт параметры intake service.
type ServiceOptions struct {
	Logger      *log.Entry
	EventsTopic string
}

// Option настраивает Service.
type Option func(*ServiceOptions)

// WithLogger задаёт logger для intake service.
func WithLogger(logger *log.Entry) Option {
	return func(opts *ServiceOptions) {
		opts.Logger = logger
	}
}

// WithEventsTopic задаёт топик для событий исхода.
func WithEventsTopic(topic string) Option {
	return func(opts *ServiceOptions) {
		opts.EventsTopic = topic
	}
}

// Service превращает документы заказов из Kafka в вызовы размещения.
// Это входной адаптер: вся бизнес-логика остаётся в placement, здесь только
// парсинг, структурная валидация и публикация исхода.
type Service struct {
	placer      placement.Placer
	events      EventPublisher
	eventsTopic string
	logger      *log.Entry
}

// NewService создаёт intake service.
func NewService(placer placement.Placer, events EventPublisher, options ...Option) *Service {
	opts := ServiceOptions{
		EventsTopic: kafka.TopicOrderEvents,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "intake")
	}

	if opts.EventsTopic == "" {
		opts.EventsTopic = kafka.TopicOrderEvents
	}

	return &Service{
		placer:      placer,
		events:      events,
		eventsTopic: opts.EventsTopic,
		logger:      logger,
	}
}

// HandleMessage обрабатывает одно сообщение из топика входящих заказов.
// Сигнатура совместима с kafka.MessageHandler.
//
// Возвращаемая ошибка означает инфраструктурный сбой: сообщение будет
// повторено consumer-ом и затем отправлено в DLQ. Бизнес-исходы
// (placed/failed/rejected) публикуются как события и ошибкой не являются.
func (s *Service) HandleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	start := time.Now()
	defer func() {
		intakeDuration.Observe(time.Since(start).Seconds())
	}()

	doc, err := kafka.ParseOrderDocument(message)
	if err != nil {
		intakeDocuments.WithLabelValues("invalid_payload").Inc()
		s.logger.WithError(err).WithFields(log.Fields{
			"topic":  message.Topic,
			"offset": message.Offset,
		}).Warn("intake document is not valid JSON")
		return fmt.Errorf("parse order document: %w", err)
	}

	order := doc.ToDomain()
	logger := s.logger.WithField("order_id", order.ID)

	// Структурная валидация на границе: повреждённые документы отклоняем
	// до обращения к placement
	if violations := order.ValidateInvariants(); len(violations) > 0 {
		reasons := make([]string, 0, len(violations))
		for _, violation := range violations {
			reasons = append(reasons, violation.Error())
		}

		intakeDocuments.WithLabelValues("rejected").Inc()
		logger.WithField("reasons", reasons).Warn("intake document rejected by structural validation")

		return s.publishOutcome(kafka.EventTypeOrderRejected, order, map[string]interface{}{
			"reasons": reasons,
		})
	}

	placed, placeErr := s.placer.Place(order)
	switch {
	case placeErr == nil:
		intakeDocuments.WithLabelValues("placed").Inc()
		logger.Info("order placed from intake document")
		return s.publishOutcome(kafka.EventTypeOrderPlaced, placed, nil)

	case domain.IsInvalidOrder(placeErr):
		// Предусловия размещения не выполнены: заказ не изменился
		intakeDocuments.WithLabelValues("rejected").Inc()
		logger.WithError(placeErr).Warn("order rejected by placement preconditions")
		return s.publishOutcome(kafka.EventTypeOrderRejected, placed, map[string]interface{}{
			"reason": placeErr.Error(),
		})

	case domain.IsPersistenceFailed(placeErr):
		// Терминальный бизнес-исход: заказ переведён в failed, повтор
		// сообщения привёл бы ко второму жизненному циклу того же заказа
		intakeDocuments.WithLabelValues("failed").Inc()
		logger.WithError(placeErr).Error("order failed: storage did not accept the save")
		return s.publishOutcome(kafka.EventTypeOrderFailed, placed, map[string]interface{}{
			"reason": placeErr.Error(),
		})

	default:
		// Неклассифицированная ошибка (например, открытый circuit breaker):
		// размещение не состоялось, сообщение можно безопасно повторить
		intakeDocuments.WithLabelValues("errored").Inc()
		logger.WithError(placeErr).Error("placement did not run, message will be retried")
		return fmt.Errorf("place order %s: %w", order.ID, placeErr)
	}
}

// publishOutcome публикует событие исхода в events topic.
func (s *Service) publishOutcome(eventType kafka.EventType, order domain.Order, metadata map[string]interface{}) error {
	if s.events == nil {
		s.logger.WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Debug("event publisher is not configured, outcome not published")
		return nil
	}

	event := kafka.NewOrderEvent(eventType, order, metadata)
	if err := s.events.PublishOrderEvent(s.eventsTopic, event); err != nil {
		intakeDocuments.WithLabelValues("publish_error").Inc()
		return fmt.Errorf("publish %s event for order %s: %w", eventType, order.ID, err)
	}
	return nil
}
