package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

type ShareHandler struct {
	sharing *service.SharingService
}

func NewShareHandler(sharing *service.SharingService) *ShareHandler {
	return &ShareHandler{sharing: sharing}
}

type shareRequest struct {
	ResourceID   string              `json:"resource_id" validate:"required"`
	ResourceType domain.ResourceType `json:"resource_type" validate:"required,oneof=file folder"`
	UserIDs      []string            `json:"user_ids" validate:"required,min=1,dive,required"`
	Role         domain.Role         `json:"role" validate:"required,oneof=viewer editor"`
}

// ShareResource выдает роль списку пользователей. Ответ содержит исход
// по каждой цели: одна неудачная цель не отменяет остальные.
func (h *ShareHandler) ShareResource(w http.ResponseWriter, r *http.Request) {
	log.Printf("[ShareResource] Processing share request")

	userID, err := auth.VerifyToken(r)
	if err != nil {
		log.Printf("[ShareResource] Authentication failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.sharing.Share(
		r.Context(),
		domain.UserPrincipal(userID),
		req.ResourceID,
		req.ResourceType,
		req.UserIDs,
		req.Role,
	)
	if err != nil {
		log.Printf("[ShareResource] Failed to share %s %s: %v", req.ResourceType, req.ResourceID, err)
		writeError(w, "ShareResource", err)
		return
	}

	log.Printf("[ShareResource] Shared %s %s with %d users", req.ResourceType, req.ResourceID, len(results))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Results []service.ShareResult `json:"results"`
	}{Results: results})
}

type changeRoleRequest struct {
	ResourceID   string              `json:"resource_id" validate:"required"`
	ResourceType domain.ResourceType `json:"resource_type" validate:"required,oneof=file folder"`
	UserID       string              `json:"user_id" validate:"required"`
	Role         domain.Role         `json:"role" validate:"required,oneof=viewer editor"`
}

// ChangeRole меняет роль прямой записи ACL
func (h *ShareHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.sharing.ChangeRole(
		r.Context(),
		domain.UserPrincipal(userID),
		req.ResourceID,
		req.ResourceType,
		req.UserID,
		req.Role,
	)
	if err != nil {
		log.Printf("[ChangeRole] Failed for %s on %s %s: %v", req.UserID, req.ResourceType, req.ResourceID, err)
		writeError(w, "ChangeRole", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

type removePermissionRequest struct {
	ResourceID   string              `json:"resource_id" validate:"required"`
	ResourceType domain.ResourceType `json:"resource_type" validate:"required,oneof=file folder"`
	UserID       string              `json:"user_id" validate:"required"`
}

// RemovePermission удаляет прямую запись ACL
func (h *ShareHandler) RemovePermission(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req removePermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.sharing.Unshare(
		r.Context(),
		domain.UserPrincipal(userID),
		req.ResourceID,
		req.ResourceType,
		req.UserID,
	); err != nil {
		log.Printf("[RemovePermission] Failed for %s on %s %s: %v", req.UserID, req.ResourceType, req.ResourceID, err)
		writeError(w, "RemovePermission", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCollaborators возвращает прямые гранты ресурса для диалога шаринга
func (h *ShareHandler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resourceID := r.URL.Query().Get("resource_id")
	resourceType := domain.ResourceType(r.URL.Query().Get("resource_type"))
	if resourceID == "" || !resourceType.Valid() {
		http.Error(w, "resource_id and valid resource_type are required", http.StatusBadRequest)
		return
	}

	collaborators, err := h.sharing.ListCollaborators(r.Context(), domain.UserPrincipal(userID), resourceID, resourceType)
	if err != nil {
		log.Printf("[ListCollaborators] Failed for %s %s: %v", resourceType, resourceID, err)
		writeError(w, "ListCollaborators", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(collaborators)
}

// GetSharedWithMe возвращает все прямые гранты пользователя
func (h *ShareHandler) GetSharedWithMe(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.sharing.SharedWithMe(r.Context(), domain.UserPrincipal(userID))
	if err != nil {
		log.Printf("[GetSharedWithMe] Failed for user %s: %v", userID, err)
		writeError(w, "GetSharedWithMe", err)
		return
	}

	log.Printf("[GetSharedWithMe] Returning %d grants for user %s", len(entries), userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
