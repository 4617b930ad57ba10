package memory

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/opr/internal/domain"
)

// OrderRepository — простая in-memory реализация OrderRepository.
// Потокобезопасность обеспечивает RWMutex; use case никакой координации не делает.
type OrderRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		items: make(map[string]domain.Order),
	}
}

// Save сохраняет заказ, если ID ещё не занят. Пустой ID отклоняется как
// ErrStorageInvalid, повторный — как ErrStorageConflict.
func (r *OrderRepository) Save(order domain.Order) error {
	if order.ID == "" {
		return fmt.Errorf("%w: %w", domain.ErrStorageInvalid, domain.ErrOrderIDRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return fmt.Errorf("%w: order %s already stored", domain.ErrStorageConflict, order.ID)
	}
	// Сохраняем глубокую копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order.Clone()
	return nil
}

// Get возвращает копию сохранённого заказа. Метод нужен тестам и инструментам,
// частью контракта хранилища он не является.
func (r *OrderRepository) Get(id string) (domain.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, false
	}
	return order.Clone(), true
}

// Len возвращает количество сохранённых заказов.
func (r *OrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
