package domain

// OrderRepository описывает требование к хранилищу заказов: единственная
// операция долговечного сохранения. Реализация выполняет ровно одну попытку
// записи за вызов, не изменяет переданное значение и классифицирует отказ
// одним из sentinel-ов ErrStorage*. Повторные попытки — ответственность
// вызывающей стороны, сам адаптер их не делает.
type OrderRepository interface {
	// Save сохраняет заказ. Возвращает nil при успехе либо ошибку,
	// обёрнутую в один из классов ErrStorage*.
	Save(order Order) error
}
