package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/ace-232/day-planner-app/internal/httpx"
)

// sendGridAPIBase is the default SendGrid API base URL.
const sendGridAPIBase = "https://api.sendgrid.com"

// SendGridConfig configures a SendGridMailer.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
	// BaseURL overrides the API endpoint; tests point it at httptest.
	BaseURL string
}

// SendGridMailer sends mail through the SendGrid v3 Mail Send API.
type SendGridMailer struct {
	client  *httpx.Client
	cfg     SendGridConfig
	baseURL string
}

var _ reminder.Mailer = (*SendGridMailer)(nil)

// NewSendGridMailer creates a mailer. A nil client gets a default breaker.
func NewSendGridMailer(client *httpx.Client, cfg SendGridConfig) *SendGridMailer {
	if client == nil {
		client = httpx.New(nil, httpx.Config{Name: "sendgrid", UserAgent: "day-planner/1.0"})
	}
	base := cfg.BaseURL
	if base == "" {
		base = sendGridAPIBase
	}
	return &SendGridMailer{client: client, cfg: cfg, baseURL: strings.TrimSuffix(base, "/")}
}

type sendGridPayload struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
	// custom_args lets bounces and events be matched to the attempt
	CustomArgs map[string]string `json:"custom_args,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (m *SendGridMailer) payload(ctx context.Context, to, subject, body string) sendGridPayload {
	p := sendGridPayload{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: to}}}},
		From:             sendGridAddress{Email: m.cfg.From, Name: m.cfg.FromName},
		Subject:          subject,
		Content:          []sendGridContent{{Type: "text/plain", Value: body}},
	}
	if a, ok := reminder.AttemptFrom(ctx); ok {
		p.CustomArgs = map[string]string{
			"task_id":    a.TaskID,
			"message_id": a.MessageID,
			"attempt":    strconv.Itoa(a.Number),
		}
	}
	return p
}

// Send posts one message. Anything but 202 Accepted is a failure.
func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	raw, err := json.Marshal(m.payload(ctx, to, subject, body))
	if err != nil {
		return fmt.Errorf("sendgrid: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("sendgrid: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
