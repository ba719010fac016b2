package domain

import "time"

// ACLEntry представляет прямое назначение роли пользователю на конкретный ресурс.
// Унаследованные права никогда не сохраняются как записи — они вычисляются
// резолвером при обходе родительских папок.
type ACLEntry struct {
	ID           int64        `json:"id" db:"id"`
	ResourceID   string       `json:"resource_id" db:"resource_id"`
	ResourceType ResourceType `json:"resource_type" db:"resource_type"`
	UserID       string       `json:"user_id" db:"user_id"`
	Role         Role         `json:"role" db:"role"`
	GrantedBy    string       `json:"granted_by" db:"granted_by"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// Collaborator — запись ACL, дополненная данными из каталога пользователей
// для диалога "у кого есть доступ"
type Collaborator struct {
	UserID      string    `json:"user_id"`
	EmailDomain string    `json:"email_domain,omitempty"`
	Role        Role      `json:"role"`
	GrantedBy   string    `json:"granted_by"`
	CreatedAt   time.Time `json:"created_at"`
}
