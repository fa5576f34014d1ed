// Package telegram sends order summaries to the restaurant's Telegram chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/delivery"
	"github.com/wokexpress/storefront/internal/notify"
	"github.com/wokexpress/storefront/internal/provider/resilience"
)

const (
	// ProviderName identifies the Telegram Bot API in the provider registry.
	ProviderName = "telegram"

	// DefaultBaseURL is the Telegram Bot API base URL.
	DefaultBaseURL = "https://api.telegram.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// Sentinel errors.
var (
	// ErrNotConfigured is returned when the bot token or chat id is missing.
	ErrNotConfigured = errors.New("telegram bot token or chat id not configured")
	// ErrRateLimited is returned when Telegram answers 429.
	ErrRateLimited = errors.New("telegram rate limit exceeded")
)

// APIError is a non-OK answer from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.StatusCode, e.Description)
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Telegram client.
type ClientConfig struct {
	BotToken string
	ChatID   string

	// BaseURL is the API base URL (optional, defaults to the Bot API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Client is a Telegram Bot API client.
type Client struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Telegram client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		botToken:   cfg.BotToken,
		chatID:     cfg.ChatID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

type sendMessageRequest struct {
	ChatID      string          `json:"chat_id"`
	Text        string          `json:"text"`
	ParseMode   string          `json:"parse_mode,omitempty"`
	ReplyMarkup *inlineKeyboard `json:"reply_markup,omitempty"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NotifyOrder posts a formatted order summary with order management buttons.
func (c *Client) NotifyOrder(ctx context.Context, event notify.OrderEvent) error {
	return c.send(ctx, sendMessageRequest{
		ChatID:      c.chatID,
		Text:        FormatOrder(event),
		ParseMode:   "Markdown",
		ReplyMarkup: orderButtons(event.OrderID),
	})
}

// SendMessage posts plain text to the configured chat.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	return c.send(ctx, sendMessageRequest{ChatID: c.chatID, Text: text})
}

func (c *Client) send(ctx context.Context, msg sendMessageRequest) error {
	if c.botToken == "" || c.chatID == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	var apiResp apiResponse
	_ = json.Unmarshal(respBody, &apiResp)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiResp.Description)
	case resp.StatusCode != http.StatusOK || !apiResp.OK:
		desc := apiResp.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Description: desc}
	}

	c.logger.Debug().Str("chat_id", c.chatID).Msg("telegram message sent")
	return nil
}

func orderButtons(orderID string) *inlineKeyboard {
	return &inlineKeyboard{InlineKeyboard: [][]inlineButton{
		{{Text: "✅ Принять заказ", CallbackData: "accept_" + orderID}},
		{{Text: "🚗 Отправить в доставку", CallbackData: "delivery_" + orderID}},
		{{Text: "❌ Отменить заказ", CallbackData: "cancel_" + orderID}},
	}}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// FormatOrder renders the staff-facing order summary in Telegram Markdown.
func FormatOrder(e notify.OrderEvent) string {
	esc := markdownEscaper.Replace

	var b strings.Builder
	fmt.Fprintf(&b, "🆕 *НОВЫЙ ЗАКАЗ %s*\n\n", esc(e.OrderID))
	fmt.Fprintf(&b, "👤 *Клиент:* %s\n", esc(e.Customer.Name))
	fmt.Fprintf(&b, "📞 *Телефон:* %s\n", esc(e.Customer.Phone))
	fmt.Fprintf(&b, "📍 *Адрес:* %s\n", esc(e.Customer.Address))
	if e.Customer.Comment != nil && *e.Customer.Comment != "" {
		fmt.Fprintf(&b, "💬 *Комментарий:* %s\n", esc(*e.Customer.Comment))
	}

	b.WriteString("\n🍱 *Состав заказа:*\n")
	for _, item := range e.Items {
		fmt.Fprintf(&b, "  • %s × %d → %s\n",
			esc(item.Title), item.Quantity, delivery.FormatPrice(item.PriceCents*int64(item.Quantity)))
	}

	b.WriteString("\n")
	if e.IsFreeDelivery {
		b.WriteString("🚚 *Доставка:* бесплатно\n")
	} else {
		fmt.Fprintf(&b, "🚚 *Доставка:* %s\n", delivery.FormatPrice(e.DeliveryCents))
	}
	fmt.Fprintf(&b, "📏 *Расстояние:* %.1f км, ~%d мин\n", e.DistanceKm, e.TotalMinutes)
	fmt.Fprintf(&b, "💰 *Сумма:* %s\n", delivery.FormatPrice(e.TotalCents))
	b.WriteString("💳 *Оплата:* Наличными при получении\n")
	fmt.Fprintf(&b, "🕒 *Время:* %s", e.CreatedAt.Format("02.01.2006 15:04"))

	return b.String()
}

var _ notify.Notifier = (*Client)(nil)
