package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

// OrderRepository — in-memory реализация domain.OrderRepository.
// Заказы хранятся упорядоченным срезом; index ускоряет поиск по ID.
type OrderRepository struct {
	mu     sync.RWMutex
	orders []domain.Order
	index  map[int64]int
	nextID int64
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		index:  make(map[int64]int),
		nextID: 1,
	}
}

// Insert назначает следующий ID и добавляет заказ в конец коллекции.
func (r *OrderRepository) Insert(order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := order.Clone()
	stored.ID = r.nextID
	r.nextID++

	r.index[stored.ID] = len(r.orders)
	r.orders = append(r.orders, stored)
	return stored.Clone(), nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *OrderRepository) Get(id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.orders[pos].Clone(), nil
}

// ListByOwner возвращает заказы владельца в порядке вставки.
func (r *OrderRepository) ListByOwner(ownerID int64) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.orders {
		if order.OwnerID != ownerID {
			continue
		}
		result = append(result, order.Clone())
	}
	return result, nil
}

// ListAll возвращает копию всей коллекции в порядке вставки.
func (r *OrderRepository) ListAll() ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		result = append(result, order.Clone())
	}
	return result, nil
}

// Update применяет mutate к копии заказа под эксклюзивной блокировкой и
// заменяет запись целиком только при успехе.
func (r *OrderRepository) Update(id int64, mutate func(*domain.Order) error) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	draft := r.orders[pos].Clone()
	if err := mutate(&draft); err != nil {
		return domain.Order{}, err
	}
	// ID и владелец неизменны, что бы ни сделал mutate.
	draft.ID = r.orders[pos].ID
	draft.OwnerID = r.orders[pos].OwnerID

	r.orders[pos] = draft
	return draft.Clone(), nil
}

// Len возвращает количество сохранённых заказов.
func (r *OrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// Reset очищает хранилище и перезапускает нумерацию с 1. Используется только в тестах.
func (r *OrderRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders = nil
	r.index = make(map[int64]int)
	r.nextID = 1
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
