package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ricirt/venturematch/internal/domain"
)

// sendRequest is the JSON body posted to the email API.
type sendRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template,omitempty"`
}

// HTTPGateway delivers mail by POSTing to a transactional email API.
// The URL is injected from config so tests can point it at httptest.
type HTTPGateway struct {
	url        string
	token      string
	from       string
	httpClient *http.Client
}

func NewHTTPGateway(url, token, from string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		url:   url,
		token: token,
		from:  from,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send posts msg and classifies the outcome. Network failures, timeouts, 429
// and 5xx are transient; any other non-2xx status is permanent.
func (g *HTTPGateway) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return domain.Permanentf("email has no recipient address")
	}

	body, err := json.Marshal(sendRequest{
		From:     g.from,
		To:       msg.To,
		Subject:  msg.Subject,
		Body:     msg.Body,
		Template: msg.Template,
	})
	if err != nil {
		return domain.Permanentf("marshal email: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return domain.Permanentf("create email request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("email gateway unavailable: status %d", resp.StatusCode)
	default:
		return domain.Permanentf("email rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
}

// compile-time check that HTTPGateway implements Gateway
var _ Gateway = (*HTTPGateway)(nil)
