// Package notify forwards in-app notifications from a worker process to the
// API process that holds the live connections.
package notify

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

// AttemptHeader carries "<taskId>/<attempt>" on forwarded notifications.
const AttemptHeader = "X-Reminder-Attempt"

// Request is the body of POST /api/notify.
type Request struct {
	UserID  string                `json:"userId" validate:"required"`
	Message reminder.Notification `json:"message"`
}

// HTTPNotifier posts notifications to the internal notify endpoint.
type HTTPNotifier struct {
	client   *httpx.Client
	endpoint string
	key      string
}

var _ reminder.Notifier = (*HTTPNotifier)(nil)

// NewHTTPNotifier creates a notifier posting to baseURL + "/api/notify" with
// the internal API key. A nil client gets a default breaker.
func NewHTTPNotifier(client *httpx.Client, baseURL, internalKey string) *HTTPNotifier {
	if client == nil {
		client = httpx.New(nil, httpx.Config{Name: "notify"})
	}
	return &HTTPNotifier{
		client:   client,
		endpoint: strings.TrimSuffix(baseURL, "/") + "/api/notify",
		key:      internalKey,
	}
}

// Notify posts n for userID. Any non-2xx response is an error.
func (h *HTTPNotifier) Notify(ctx context.Context, userID string, n reminder.Notification) error {
	body, err := json.Marshal(Request{UserID: userID, Message: n})
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.key)
	if a, ok := reminder.AttemptFrom(ctx); ok {
		req.Header.Set(AttemptHeader, a.TaskID+"/"+strconv.Itoa(a.Number))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("notify: status %d", resp.StatusCode)
	}
	return nil
}
