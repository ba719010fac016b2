package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

// Заголовки для доступа по публичной ссылке
const (
	headerShareToken    = "X-Share-Token"
	headerSharePassword = "X-Share-Password"
)

type PermissionHandler struct {
	permissions *service.PermissionService
}

func NewPermissionHandler(permissions *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// principalFromRequest собирает принципала из запроса. Авторизация
// обязательна только если не предъявлен токен ссылки: анонимный доступ
// по ссылке легален.
func principalFromRequest(r *http.Request) (domain.Principal, error) {
	principal := domain.Principal{
		LinkToken:    r.Header.Get(headerShareToken),
		LinkPassword: r.Header.Get(headerSharePassword),
	}

	userID, err := auth.VerifyToken(r)
	if err != nil {
		if principal.HasToken() {
			return principal, nil
		}
		return domain.Principal{}, err
	}
	principal.UserID = userID
	return principal, nil
}

// ResolvePermission возвращает эффективные права принципала на ресурс
func (h *PermissionHandler) ResolvePermission(w http.ResponseWriter, r *http.Request) {
	principal, err := principalFromRequest(r)
	if err != nil {
		log.Printf("[ResolvePermission] Authentication failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resourceID := r.URL.Query().Get("resource_id")
	resourceType := domain.ResourceType(r.URL.Query().Get("resource_type"))
	if resourceID == "" || !resourceType.Valid() {
		http.Error(w, "resource_id and valid resource_type are required", http.StatusBadRequest)
		return
	}

	set, err := h.permissions.Resolve(r.Context(), principal, resourceID, resourceType)
	if err != nil {
		log.Printf("[ResolvePermission] Failed to resolve %s %s: %v", resourceType, resourceID, err)
		writeError(w, "ResolvePermission", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(set)
}
