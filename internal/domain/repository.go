package domain

// OrderRepository описывает требования к хранилищу заказов.
// Все методы возвращают копии; изменить хранимый заказ можно только через Update.
type OrderRepository interface {
	// Insert назначает заказу следующий свободный ID и сохраняет его.
	Insert(order Order) (Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id int64) (Order, error)
	// ListByOwner возвращает заказы владельца в порядке создания.
	ListByOwner(ownerID int64) ([]Order, error)
	// ListAll возвращает все заказы в порядке создания.
	ListAll() ([]Order, error)
	// Update атомарно применяет mutate к заказу. Если mutate вернул ошибку, ничего не сохраняется.
	Update(id int64, mutate func(*Order) error) (Order, error)
}
