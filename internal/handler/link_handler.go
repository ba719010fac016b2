package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

type LinkHandler struct {
	sharing     *service.SharingService
	permissions *service.PermissionService
}

func NewLinkHandler(sharing *service.SharingService, permissions *service.PermissionService) *LinkHandler {
	return &LinkHandler{sharing: sharing, permissions: permissions}
}

type createLinkRequest struct {
	ResourceID     string              `json:"resource_id" validate:"required"`
	ResourceType   domain.ResourceType `json:"resource_type" validate:"required,oneof=file folder"`
	Role           domain.Role         `json:"role" validate:"required,oneof=viewer editor"`
	RequireLogin   bool                `json:"require_login"`
	AllowedUserIDs []string            `json:"allowed_user_ids,omitempty"`
	AllowedDomains []string            `json:"allowed_domains,omitempty"`
	AllowDownload  bool                `json:"allow_download"`
	ExpiresIn      *int64              `json:"expires_in,omitempty" validate:"omitempty,gt=0"`
	MaxAccessCount *int64              `json:"max_access_count,omitempty" validate:"omitempty,gt=0"`
	Password       string              `json:"password,omitempty"`
}

// CreateLink создает публичную ссылку на ресурс
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	log.Printf("[CreateLink] Processing new link request")

	userID, err := auth.VerifyToken(r)
	if err != nil {
		log.Printf("[CreateLink] Authentication failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var expiresAt *time.Time
	if req.ExpiresIn != nil {
		t := time.Now().Add(time.Duration(*req.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	link, err := h.sharing.CreateLink(
		r.Context(),
		domain.UserPrincipal(userID),
		req.ResourceID,
		req.ResourceType,
		service.LinkOptions{
			Role:           req.Role,
			RequireLogin:   req.RequireLogin,
			AllowedUserIDs: req.AllowedUserIDs,
			AllowedDomains: req.AllowedDomains,
			AllowDownload:  req.AllowDownload,
			ExpiresAt:      expiresAt,
			MaxAccessCount: req.MaxAccessCount,
			Password:       req.Password,
		},
	)
	if err != nil {
		log.Printf("[CreateLink] Failed for %s %s: %v", req.ResourceType, req.ResourceID, err)
		writeError(w, "CreateLink", err)
		return
	}

	log.Printf("[CreateLink] Created link %s for %s %s", link.ID, req.ResourceType, req.ResourceID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(link.Summary())
}

type updateLinkRequest struct {
	Role           *domain.Role `json:"role,omitempty" validate:"omitempty,oneof=viewer editor"`
	RequireLogin   *bool        `json:"require_login,omitempty"`
	AllowDownload  *bool        `json:"allow_download,omitempty"`
	AllowedUserIDs []string     `json:"allowed_user_ids,omitempty"`
	AllowedDomains []string     `json:"allowed_domains,omitempty"`
	ExpiresIn      *int64       `json:"expires_in,omitempty" validate:"omitempty,gt=0"`
	ClearExpiry    bool         `json:"clear_expiry,omitempty"`
	MaxAccessCount *int64       `json:"max_access_count,omitempty" validate:"omitempty,gt=0"`
	ClearMaxAccess bool         `json:"clear_max_access,omitempty"`
	Password       *string      `json:"password,omitempty"`
	ClearPassword  bool         `json:"clear_password,omitempty"`
}

// UpdateLink применяет частичное обновление настроек ссылки
func (h *LinkHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	linkID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid link ID", http.StatusBadRequest)
		return
	}

	var req updateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	update := service.LinkUpdate{
		Role:           req.Role,
		RequireLogin:   req.RequireLogin,
		AllowDownload:  req.AllowDownload,
		AllowedUserIDs: req.AllowedUserIDs,
		AllowedDomains: req.AllowedDomains,
		ClearExpiry:    req.ClearExpiry,
		MaxAccessCount: req.MaxAccessCount,
		ClearMaxAccess: req.ClearMaxAccess,
		Password:       req.Password,
		ClearPassword:  req.ClearPassword,
	}
	if req.ExpiresIn != nil {
		t := time.Now().Add(time.Duration(*req.ExpiresIn) * time.Second)
		update.ExpiresAt = &t
	}

	link, err := h.sharing.UpdateLink(r.Context(), domain.UserPrincipal(userID), linkID, update)
	if err != nil {
		log.Printf("[UpdateLink] Failed for link %s: %v", linkID, err)
		writeError(w, "UpdateLink", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(link.Summary())
}

// RotateToken заменяет токен ссылки, старый перестает действовать сразу
func (h *LinkHandler) RotateToken(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	linkID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid link ID", http.StatusBadRequest)
		return
	}

	token, err := h.sharing.RotateLinkToken(r.Context(), domain.UserPrincipal(userID), linkID)
	if err != nil {
		log.Printf("[RotateToken] Failed for link %s: %v", linkID, err)
		writeError(w, "RotateToken", err)
		return
	}

	log.Printf("[RotateToken] Rotated token for link %s", linkID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Token string `json:"token"`
	}{Token: token})
}

// RevokeLink навсегда отзывает ссылку
func (h *LinkHandler) RevokeLink(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	linkID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid link ID", http.StatusBadRequest)
		return
	}

	if err := h.sharing.RevokeLink(r.Context(), domain.UserPrincipal(userID), linkID); err != nil {
		log.Printf("[RevokeLink] Failed for link %s: %v", linkID, err)
		writeError(w, "RevokeLink", err)
		return
	}

	log.Printf("[RevokeLink] Revoked link %s", linkID)
	w.WriteHeader(http.StatusNoContent)
}

// ListLinks возвращает ссылки ресурса
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
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

	links, err := h.sharing.ListLinks(r.Context(), domain.UserPrincipal(userID), resourceID, resourceType)
	if err != nil {
		log.Printf("[ListLinks] Failed for %s %s: %v", resourceType, resourceID, err)
		writeError(w, "ListLinks", err)
		return
	}

	summaries := make([]*domain.ShareLinkSummary, 0, len(links))
	for i := range links {
		summaries = append(summaries, links[i].Summary())
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

type accessByTokenRequest struct {
	ResourceID   string              `json:"resource_id,omitempty"`
	ResourceType domain.ResourceType `json:"resource_type,omitempty"`
	Password     string              `json:"password,omitempty"`
}

// AccessByToken — вход для открытия ресурса по ссылке. Считает одно
// обращение по ссылке; чистая проверка прав без списания обращения —
// это GET /v1/permissions.
func (h *LinkHandler) AccessByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	var req accessByTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Авторизация не обязательна: ссылка может быть полностью публичной
	principal := domain.LinkPrincipal(token, req.Password)
	if userID, err := auth.VerifyToken(r); err == nil {
		principal.UserID = userID
	}

	resourceID, resourceType := req.ResourceID, req.ResourceType
	if resourceID == "" {
		// Цель по умолчанию — ресурс самой ссылки
		link, err := h.permissions.LinkByToken(r.Context(), token)
		if err != nil {
			log.Printf("[AccessByToken] Unknown token: %v", err)
			writeError(w, "AccessByToken", err)
			return
		}
		resourceID, resourceType = link.ResourceID, link.ResourceType
	}
	if !resourceType.Valid() {
		http.Error(w, "valid resource_type is required", http.StatusBadRequest)
		return
	}

	set, err := h.permissions.ResolveAccess(r.Context(), principal, resourceID, resourceType)
	if err != nil {
		log.Printf("[AccessByToken] Failed for %s %s: %v", resourceType, resourceID, err)
		writeError(w, "AccessByToken", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		ResourceID   string                `json:"resource_id"`
		ResourceType domain.ResourceType   `json:"resource_type"`
		Permissions  *domain.PermissionSet `json:"permissions"`
	}{
		ResourceID:   resourceID,
		ResourceType: resourceType,
		Permissions:  set,
	})
}
