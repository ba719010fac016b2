package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"nimbusdrive/internal/domain"
)

// validate — общий валидатор структур запросов
var validate = validator.New()

// writeError переводит доменные ошибки в HTTP статусы. Ошибка пароля
// ссылки отдается отдельным статусом, чтобы клиент показал форму пароля,
// а не общий 404.
func writeError(w http.ResponseWriter, method string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPassword):
		http.Error(w, "Link password required or invalid", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrLinkNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, domain.ErrInvalidOptions), errors.Is(err, domain.ErrInvalidRole):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrCycleDetected):
		// Поврежденный граф — фатально для запроса, подробности только в лог
		log.Printf("[%s] Hierarchy corruption: %v", method, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		log.Printf("[%s] Unexpected error: %v", method, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
