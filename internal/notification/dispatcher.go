package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"nimbusdrive/internal/service"
)

// Dispatcher отправляет уведомления о шаринге во внешний сервис.
// Отправка fire-and-forget: доставка — забота внешнего сервиса,
// ошибки только логируются и не влияют на саму мутацию.
type Dispatcher struct {
	webhookURL string
	http       *http.Client
}

func NewDispatcher(webhookURL string) *Dispatcher {
	return &Dispatcher{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type payload struct {
	UserID string                    `json:"user_id"`
	Event  service.NotificationEvent `json:"event"`
}

// Notify ставит отправку уведомления и сразу возвращается
func (d *Dispatcher) Notify(userID string, event service.NotificationEvent) {
	if d.webhookURL == "" {
		log.Printf("[Notify] No webhook configured, event %s for user %s dropped", event.Type, userID)
		return
	}

	go func() {
		if err := d.post(userID, event); err != nil {
			log.Printf("[Notify] Failed to deliver %s to %s: %v", event.Type, userID, err)
		}
	}()
}

func (d *Dispatcher) post(userID string, event service.NotificationEvent) error {
	body, err := json.Marshal(payload{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	resp, err := d.http.Post(d.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}
	return nil
}
