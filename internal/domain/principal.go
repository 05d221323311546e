package domain

// Role — числовой идентификатор роли, как его выдаёт сервис авторизации.
type Role int

const (
	// RoleCustomer — обычный покупатель.
	RoleCustomer Role = 0
	// RoleAdmin — администратор (role_id = 1).
	RoleAdmin Role = 1
)

// Principal — проверенная личность, от имени которой выполняется запрос.
type Principal struct {
	ID   int64
	Role Role
}

// IsAdmin сообщает, есть ли у принципала повышенные права.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// RequireAuthenticated возвращает ErrAuthenticationRequired для nil-принципала.
func RequireAuthenticated(p *Principal) error {
	if p == nil {
		return ErrAuthenticationRequired
	}
	return nil
}

// CanView: администратор или владелец заказа.
func CanView(p *Principal, order Order) error {
	if p == nil {
		return ErrAccessDenied
	}
	if p.IsAdmin() || p.ID == order.OwnerID {
		return nil
	}
	return ErrAccessDenied
}

// CanCancel: только владелец. Администратор отменяет заказ через смену статуса.
func CanCancel(p *Principal, order Order) error {
	if p == nil || p.ID != order.OwnerID {
		return ErrAccessDenied
	}
	return nil
}
