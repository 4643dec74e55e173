// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/yumeka/bili2tg/internal/ports"
)

const (
	defaultBaseURL        = "https://api.telegram.org"
	defaultRequestTimeout = 15 * time.Second
	maxResponseBytes      = 1 << 20
)

var defaultHTTPClient = &http.Client{Timeout: defaultRequestTimeout}

// Sink sends one message per item to a fixed chat. The caller paces sends;
// the sink only reports delivery failures.
type Sink struct {
	BaseURL    string
	Token      string
	ChatID     string
	HTTPClient *http.Client
}

var _ ports.NotificationSink = Sink{}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (s Sink) Send(ctx context.Context, title, url string, observedAt time.Time) error {
	if s.Token == "" {
		return errors.New("telegram bot token is required")
	}
	if s.ChatID == "" {
		return errors.New("telegram chat id is required")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    s.ChatID,
		Text:      fmt.Sprintf("<b>%s</b>\n%s\nAt: <i>%s</i>", html.EscapeString(title), url, observedAt.Format(time.RFC3339)),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL(), s.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result sendMessageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return fmt.Errorf("decode telegram response (status %d): %w", resp.StatusCode, err)
	}
	if !result.OK {
		if result.Description == "" {
			return fmt.Errorf("send telegram message: status %d", resp.StatusCode)
		}
		return fmt.Errorf("send telegram message: %s", result.Description)
	}

	return nil
}

func (s Sink) baseURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return defaultBaseURL
}

func (s Sink) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return defaultHTTPClient
}
