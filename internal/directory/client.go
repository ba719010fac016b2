package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client — клиент внешнего каталога пользователей. Подсистеме доступа
// от него нужны две вещи: проверка существования пользователя и домен
// его почты для ограничений ссылок.
type Client struct {
	addr string
	http *http.Client
}

func NewClient(addr string) *Client {
	return &Client{
		addr: addr,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (c *Client) getUser(ctx context.Context, userID string) (*userInfo, error) {
	endpoint := fmt.Sprintf("%s/v1/users/%s", c.addr, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory service unavailable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var info userInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, fmt.Errorf("failed to decode directory response: %w", err)
		}
		return &info, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("directory service returned status %d", resp.StatusCode)
	}
}

// UserExists проверяет существование пользователя
func (c *Client) UserExists(ctx context.Context, userID string) (bool, error) {
	info, err := c.getUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// EmailDomain возвращает домен почты пользователя
func (c *Client) EmailDomain(ctx context.Context, userID string) (string, error) {
	info, err := c.getUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", fmt.Errorf("user %s not found in directory", userID)
	}

	at := strings.LastIndex(info.Email, "@")
	if at < 0 || at == len(info.Email)-1 {
		return "", fmt.Errorf("user %s has malformed email", userID)
	}
	return info.Email[at+1:], nil
}
