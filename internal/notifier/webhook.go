package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payout/internal/domain"
	"payout/internal/port"

	"github.com/google/uuid"
)

const defaultTimeout = 5 * time.Second

// Webhook posts completion notifications to a receiver URL. Delivery is
// best-effort; the orchestrator retries and then logs failures.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

func (n *Webhook) Send(ctx context.Context, withdrawalID uuid.UUID) error {
	payload, err := json.Marshal(map[string]string{
		"withdrawal_id": withdrawalID.String(),
		"status":        string(domain.StatusDone),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotification, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: receiver returned %d", domain.ErrNotification, resp.StatusCode)
	}
	return nil
}

var _ port.Notifier = (*Webhook)(nil)
