package domain

import "errors"

// Классы ошибок хранилища. Адаптер обязан обернуть свою ошибку ровно в один
// из этих sentinel-ов, чтобы вызывающая сторона различала исходы через errors.Is.
var (
	// ErrStorageUnavailable — хранилище недоступно, попытку можно повторить.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageConflict — запись с таким идентификатором уже существует.
	ErrStorageConflict = errors.New("storage conflict")
	// ErrStorageInvalid — хранилище отвергло данные заказа.
	ErrStorageInvalid = errors.New("storage rejected order data")
)

// Ошибки use case размещения.
var (
	// ErrInvalidOrder — нарушено предусловие размещения; хранилище не вызывалось.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrPersistenceFailed — хранилище сообщило об ошибке; заказ переведён в failed.
	ErrPersistenceFailed = errors.New("order persistence failed")
	// ErrOrderNotPending уточняет ErrInvalidOrder: статус заказа отличен от pending.
	ErrOrderNotPending = errors.New("order status is not pending")
)

// Структурные замечания, которые возвращает ValidateInvariants.
var (
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка неизвестного статуса заказа.
	ErrStatusUnknown = errors.New("order status is unknown")
	// Ошибка отсутствующего SKU позиции.
	ErrItemSKURequired = errors.New("item sku is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
)

// IsStorageUnavailable проверяет, относится ли ошибка к классу Unavailable.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsStorageConflict проверяет, относится ли ошибка к классу Conflict.
func IsStorageConflict(err error) bool {
	return errors.Is(err, ErrStorageConflict)
}

// IsStorageInvalid проверяет, относится ли ошибка к классу Invalid.
func IsStorageInvalid(err error) bool {
	return errors.Is(err, ErrStorageInvalid)
}

// IsInvalidOrder проверяет, является ли ошибка нарушением предусловий размещения.
func IsInvalidOrder(err error) bool {
	return errors.Is(err, ErrInvalidOrder)
}

// IsPersistenceFailed проверяет, является ли ошибка отказом хранилища при размещении.
func IsPersistenceFailed(err error) bool {
	return errors.Is(err, ErrPersistenceFailed)
}

// StorageErrorKind возвращает метку класса ошибки хранилища для логов и метрик.
func StorageErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrStorageUnavailable):
		return "unavailable"
	case errors.Is(err, ErrStorageConflict):
		return "conflict"
	case errors.Is(err, ErrStorageInvalid):
		return "invalid"
	default:
		return "unknown"
	}
}
