package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// markdownV2Reserved are the characters that must be escaped in MarkdownV2.
const markdownV2Reserved = "_*[]()~`>#+-=|{}.!"

// Client sends messages to a single chat through the Telegram Bot API.
type Client struct {
	// BaseURL may be overridden, e.g. to point at a test server.
	BaseURL string

	token  string
	chatID string
	client *http.Client
}

// New creates a Client for the given bot token and chat id.
func New(token, chatID string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage posts a MarkdownV2-formatted message to the configured chat.
// The text must already be escaped (see EscapeMarkdownV2). A non-2xx
// response is returned as an error carrying the response body.
func (c *Client) SendMessage(text string) error {
	if c.token == "" || c.chatID == "" {
		return fmt.Errorf("telegram bot token or chat ID is empty")
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.token)
	resp, err := c.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// EscapeMarkdownV2 escapes the characters reserved by Telegram MarkdownV2.
func EscapeMarkdownV2(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownV2Reserved, r) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
