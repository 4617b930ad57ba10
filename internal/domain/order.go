package domain

import "time"

// OrderStatus описывает жизненный цикл заказа при размещении.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан вызывающей стороной, но ещё не размещён.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPlaced — заказ успешно сохранён хранилищем.
	OrderStatusPlaced OrderStatus = "placed"
	// OrderStatusFailed — попытка сохранения завершилась ошибкой хранилища.
	OrderStatusFailed OrderStatus = "failed"
)

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// SKU — внешний идентификатор товара.
	SKU string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, копейки).
	PriceMinor int64
}

// Order агрегирует состояние заказа и его позиции.
// Статус назначается ровно один раз: pending -> placed либо pending -> failed,
// обратных переходов нет.
type Order struct {
	ID         string
	CustomerID string
	Status     OrderStatus
	Items      []OrderItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone возвращает глубокую копию заказа: срез позиций дублируется, чтобы
// адаптер и вызывающая сторона не делили общую память.
func (o Order) Clone() Order {
	clone := o
	if o.Items != nil {
		clone.Items = make([]OrderItem, len(o.Items))
		copy(clone.Items, o.Items)
	}
	return clone
}

// ValidateInvariants проверяет структурные инварианты заказа и возвращает список замечаний.
// Проверка нужна на входных границах (разбор внешних документов заказа);
// предусловия размещения проверяет сам use case.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	switch o.Status {
	case OrderStatusPending, OrderStatusPlaced, OrderStatusFailed:
	default:
		errs = append(errs, ErrStatusUnknown)
	}

	for _, item := range o.Items {
		if item.SKU == "" {
			errs = append(errs, ErrItemSKURequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}
