package telegram_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wokexpress/storefront/internal/notify"
	"github.com/wokexpress/storefront/internal/notify/telegram"
)

func sampleEvent() notify.OrderEvent {
	comment := "ring twice"
	return notify.OrderEvent{
		OrderID:   "ord_123",
		CreatedAt: time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
		Customer: notify.Customer{
			Name:    "Jan_Kowalski",
			Phone:   "+48123456789",
			Address: "ul. Długa 1, Gdańsk",
			Comment: &comment,
		},
		Items: []notify.EventItem{
			{Title: "Pad Thai", PriceCents: 3200, Quantity: 2},
		},
		ItemsCents:    6400,
		DeliveryCents: 1100,
		TotalCents:    7500,
		DistanceKm:    4.0,
		TotalMinutes:  28,
	}
}

func TestClient_NotifyOrder(t *testing.T) {
	var got map[string]any
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer server.Close()

	client := telegram.NewClient(telegram.ClientConfig{
		BotToken:   "TOKEN",
		ChatID:     "-100500",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})

	require.NoError(t, client.NotifyOrder(context.Background(), sampleEvent()))

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "-100500", got["chat_id"])
	assert.Equal(t, "Markdown", got["parse_mode"])
	assert.Contains(t, got["text"], "Jan\\_Kowalski")
	assert.Contains(t, got["reply_markup"], "inline_keyboard")
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	client := telegram.NewClient(telegram.ClientConfig{
		BotToken: "TOKEN", ChatID: "1", BaseURL: server.URL, HTTPClient: server.Client(),
	})

	err := client.SendMessage(context.Background(), "hello")

	var apiErr *telegram.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Bad Request: chat not found", apiErr.Description)
}

func TestClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5"}`))
	}))
	defer server.Close()

	client := telegram.NewClient(telegram.ClientConfig{
		BotToken: "TOKEN", ChatID: "1", BaseURL: server.URL, HTTPClient: server.Client(),
	})

	assert.ErrorIs(t, client.SendMessage(context.Background(), "hello"), telegram.ErrRateLimited)
}

func TestClient_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := telegram.NewClient(telegram.ClientConfig{BaseURL: server.URL, HTTPClient: server.Client()})

	assert.ErrorIs(t, client.NotifyOrder(context.Background(), sampleEvent()), telegram.ErrNotConfigured)
	assert.Zero(t, calls.Load())
}

func TestFormatOrder(t *testing.T) {
	text := telegram.FormatOrder(sampleEvent())

	assert.Contains(t, text, "НОВЫЙ ЗАКАЗ ord\\_123")
	assert.Contains(t, text, "Pad Thai × 2 → 64.00 zł")
	assert.Contains(t, text, "*Доставка:* 11.00 zł")
	assert.Contains(t, text, "*Сумма:* 75.00 zł")
	assert.Contains(t, text, "ring twice")
	assert.Contains(t, text, "14.03.2026 18:30")

	free := sampleEvent()
	free.IsFreeDelivery = true
	free.Customer.Comment = nil
	text = telegram.FormatOrder(free)
	assert.Contains(t, text, "бесплатно")
	assert.False(t, strings.Contains(text, "Комментарий"))
}
