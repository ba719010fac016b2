package domain

import "errors"

// Ошибки доступа и жизненного цикла ссылок. Хендлеры сопоставляют их
// с HTTP статусами через errors.Is.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("access denied")
	ErrInvalidPassword = errors.New("invalid link password")
	ErrInvalidOptions  = errors.New("invalid link options")
	ErrInvalidRole     = errors.New("invalid role")
	ErrCycleDetected   = errors.New("cycle detected in folder hierarchy")
	ErrLinkNotFound    = errors.New("share link not found")
)
