package domain

// Role определяет уровень доступа к ресурсу
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
)

// roleRank задает линейный порядок ролей: viewer < editor
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
}

// Valid проверяет, что роль входит в допустимый набор
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast сравнивает роли по фиксированному порядку viewer < editor
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}
