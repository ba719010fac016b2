package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var gClient *Client

// Client — клиент внешнего сервиса аутентификации. Выпуск и валидация
// сессий живут там, здесь только проверка токена запроса.
type Client struct {
	addr string
	http *http.Client
}

// InitClient инициализирует глобальный клиент аутентификации
func InitClient(addr string) {
	gClient = &Client{
		addr: addr,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type userResponse struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

// VerifyToken проверяет Authorization заголовок запроса через сервис
// аутентификации и возвращает ID пользователя
func VerifyToken(r *http.Request) (string, error) {
	authToken := r.Header.Get("Authorization")
	if authToken == "" {
		return "", fmt.Errorf("no authorization header")
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, gClient.addr+"/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Authorization", authToken)

	resp, err := gClient.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var userInfo userResponse
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if userInfo.User.ID == "" {
		return "", fmt.Errorf("auth service returned empty user id")
	}

	return userInfo.User.ID, nil
}
