package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

type Config struct {
	BaseURL  string
	Username string
	Password string
}

type Client struct {
	config Config
	http   *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type txRequest struct {
	SubscriberEmail string            `json:"subscriber_email"`
	Subject         string            `json:"subject"`
	Body            string            `json:"body"`
	ContentType     string            `json:"content_type"`
	FromName        string            `json:"from_name"`
	ReplyTo         string            `json:"reply_to"`
	Headers         map[string]string `json:"headers"`
}

// SendActivation delivers the account-activation email in the subscriber's
// language. When no mailer is configured the link is logged instead so local
// development can still activate accounts.
func (c *Client) SendActivation(ctx context.Context, toEmail, toName, locale, confirmURL string) error {
	tpl := ActivationTemplate(locale)

	if c.config.BaseURL == "" {
		log.Printf("email not configured — activation link for %s: %s", toEmail, confirmURL)
		return nil
	}

	body := txRequest{
		SubscriberEmail: toEmail,
		Subject:         tpl.Subject,
		Body:            tpl.Render(confirmURL),
		ContentType:     "plain",
		FromName:        tpl.SenderName,
		ReplyTo:         tpl.ReplyTo,
		Headers: map[string]string{
			"List-Unsubscribe": "<mailto:unsubscribe@courseflow.example>",
			"X-Entity-Ref-ID":  strconv.FormatInt(time.Now().UnixMilli(), 10),
			"Precedence":       "Bulk",
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/tx", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send activation email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mailer returned status %d", resp.StatusCode)
	}

	return nil
}
