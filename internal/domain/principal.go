package domain

// Principal — аутентифицированный пользователь или анонимный носитель токена
// ссылки. Оба поля могут быть заполнены одновременно: залогиненный
// пользователь может открыть ресурс по ссылке.
type Principal struct {
	UserID       string
	LinkToken    string
	LinkPassword string
}

// UserPrincipal создает принципала для аутентифицированного пользователя
func UserPrincipal(userID string) Principal {
	return Principal{UserID: userID}
}

// LinkPrincipal создает принципала для доступа по токену ссылки
func LinkPrincipal(token, password string) Principal {
	return Principal{LinkToken: token, LinkPassword: password}
}

// Authenticated сообщает, есть ли у принципала подтвержденная личность
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// HasToken сообщает, предъявлен ли токен ссылки
func (p Principal) HasToken() bool {
	return p.LinkToken != ""
}
