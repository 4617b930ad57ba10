// Package stub содержит конфигурируемую заглушку OrderRepository для тестов.
package stub

import (
	"sync"

	"github.com/vladislavdragonenkov/opr/internal/domain"
)

// Repository — заглушка хранилища: возвращает заранее настроенную ошибку
// и запоминает каждый переданный заказ. По умолчанию сохранение успешно.
type Repository struct {
	// SaveErr возвращается из Save как есть; настраивается до начала теста.
	SaveErr error

	mu    sync.Mutex
	calls int
	saved []domain.Order
}

// NewRepository возвращает заглушку с успешным сценарием по умолчанию.
func NewRepository() *Repository {
	return &Repository{}
}

// Save считает вызов, запоминает копию заказа и возвращает настроенную ошибку.
func (r *Repository) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	r.saved = append(r.saved, order.Clone())
	return r.SaveErr
}

// SaveCalls возвращает число выполненных вызовов Save.
func (r *Repository) SaveCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Saved возвращает копию списка заказов, переданных в Save.
func (r *Repository) Saved() []domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Order, 0, len(r.saved))
	for _, o := range r.saved {
		out = append(out, o.Clone())
	}
	return out
}

// LastSaved возвращает последний переданный заказ, если вызовы были.
func (r *Repository) LastSaved() (domain.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.saved) == 0 {
		return domain.Order{}, false
	}
	return r.saved[len(r.saved)-1].Clone(), true
}

var _ domain.OrderRepository = (*Repository)(nil)
