package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/notify"
	"github.com/wokexpress/storefront/internal/notify/telegram"
)

// Outcome tells the transport what to do with a message.
type Outcome int

const (
	// OutcomeDone acknowledges the message.
	OutcomeDone Outcome = iota
	// OutcomeRetry asks for redelivery.
	OutcomeRetry
	// OutcomeDropped acknowledges a message that can never succeed.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeRetry:
		return "retry"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// OrderHandler forwards order events to the restaurant's notifier.
// Pub/Sub delivers at least once, so recently forwarded order ids are
// remembered for the dedup window.
type OrderHandler struct {
	notifier    notify.Notifier
	timeout     time.Duration
	dedupWindow time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	mu        sync.Mutex
	delivered map[string]time.Time
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(notifier notify.Notifier, cfg Config, logger zerolog.Logger) *OrderHandler {
	cfg.applyDefaults()
	return &OrderHandler{
		notifier:    notifier,
		timeout:     cfg.HandleTimeout,
		dedupWindow: cfg.DedupWindow,
		logger:      logger,
		now:         time.Now,
		delivered:   make(map[string]time.Time),
	}
}

// Handle decodes one order event and forwards it.
func (h *OrderHandler) Handle(ctx context.Context, data []byte) Outcome {
	start := h.now()
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &h.logger
	}

	var event notify.OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Error().Err(err).Msg("failed to parse order event")
		return OutcomeDropped
	}
	if err := event.Validate(); err != nil {
		logger.Error().Err(err).Str("order_id", event.OrderID).Msg("invalid order event")
		return OutcomeDropped
	}

	if h.seen(event.OrderID) {
		logger.Info().Str("order_id", event.OrderID).Msg("order already forwarded, skipping")
		return OutcomeDone
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.notifier.NotifyOrder(ctx, event); err != nil {
		if isPermanent(err) {
			logger.Error().Err(err).Str("order_id", event.OrderID).Msg("order notification rejected")
			return OutcomeDropped
		}
		logger.Warn().Err(err).Str("order_id", event.OrderID).Msg("order notification failed, will retry")
		return OutcomeRetry
	}

	h.markDelivered(event.OrderID)
	logger.Info().
		Str("order_id", event.OrderID).
		Dur("duration", h.now().Sub(start)).
		Msg("order notification delivered")
	return OutcomeDone
}

func (h *OrderHandler) seen(orderID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	at, ok := h.delivered[orderID]
	return ok && h.now().Sub(at) < h.dedupWindow
}

func (h *OrderHandler) markDelivered(orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for id, at := range h.delivered {
		if now.Sub(at) >= h.dedupWindow {
			delete(h.delivered, id)
		}
	}
	h.delivered[orderID] = now
}

// isPermanent reports whether redelivery cannot fix err.
func isPermanent(err error) bool {
	if errors.Is(err, telegram.ErrNotConfigured) {
		return true
	}
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError
	}
	return false
}
