package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/opr/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// EventTypeOrderReceived — документ заказа принят из входного топика.
	EventTypeOrderReceived EventType = "order.received"
	// EventTypeOrderPlaced — заказ успешно размещён.
	EventTypeOrderPlaced EventType = "order.placed"
	// EventTypeOrderFailed — хранилище отказало, заказ переведён в failed.
	EventTypeOrderFailed EventType = "order.failed"
	// EventTypeOrderRejected — документ не прошёл структурную проверку или предусловия.
	EventTypeOrderRejected EventType = "order.rejected"
)

// Topics для Kafka
const (
	TopicOrdersIncoming  = "opr.orders.incoming"
	TopicOrderEvents     = "opr.orders.events"
	TopicDeadLetterQueue = "opr.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderItemDocument — позиция во входном документе заказа.
type OrderItemDocument struct {
	SKU        string `json:"sku"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor,omitempty"`
}

// OrderDocument — входной документ заказа из топика opr.orders.incoming.
// Пустой статус трактуется как pending: идентификатор назначает издатель,
// статус первичного документа всегда начальный.
type OrderDocument struct {
	OrderID    string              `json:"order_id"`
	CustomerID string              `json:"customer_id,omitempty"`
	Status     string              `json:"status,omitempty"`
	Items      []OrderItemDocument `json:"items"`
	CreatedAt  time.Time           `json:"created_at,omitempty"`
}

// NewOrderDocument строит документ из доменного заказа (для издателей).
func NewOrderDocument(order domain.Order) *OrderDocument {
	items := make([]OrderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDocument{
			SKU:        item.SKU,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}
	return &OrderDocument{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		Items:      items,
		CreatedAt:  order.CreatedAt,
	}
}

// ToDomain переводит документ в доменный заказ.
func (d *OrderDocument) ToDomain() domain.Order {
	status := domain.OrderStatus(d.Status)
	if d.Status == "" {
		status = domain.OrderStatusPending
	}

	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem{
			SKU:        item.SKU,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}

	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return domain.Order{
		ID:         d.OrderID,
		CustomerID: d.CustomerID,
		Status:     status,
		Items:      items,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// OrderEvent представляет событие исхода размещения
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id,omitempty"`
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, order domain.Order, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// ParseOrderDocument парсит OrderDocument из сообщения
func ParseOrderDocument(message *sarama.ConsumerMessage) (*OrderDocument, error) {
	var doc OrderDocument
	if err := json.Unmarshal(message.Value, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order document: %w", err)
	}
	return &doc, nil
}

// ParseOrderEvent парсит OrderEvent из сообщения
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	return &event, nil
}
