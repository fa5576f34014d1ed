package assistant

import (
	"fmt"
	"strings"

	"github.com/wokexpress/storefront/internal/delivery"
)

// MaxSuggestions caps the quick actions shown under an assistant message.
const MaxSuggestions = 4

// Reply is a parsed assistant answer.
type Reply struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// ParseReply splits a raw model answer of the form "MESSAGE | a, b, c".
// Suggestions may be separated by commas or newlines. Missing parts are
// filled from the fallback reply for in.
func ParseReply(raw string, in PromptInput) Reply {
	message, actions, _ := strings.Cut(raw, "|")
	message = strings.TrimSpace(message)

	suggestions := make([]string, 0, MaxSuggestions)
	for _, s := range strings.FieldsFunc(actions, func(r rune) bool { return r == ',' || r == '\n' }) {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
		if len(suggestions) == MaxSuggestions {
			break
		}
	}

	fallback := FallbackReply(in)
	if message == "" {
		message = fallback.Message
	}
	if len(suggestions) == 0 {
		suggestions = fallback.Suggestions
	}
	return Reply{Message: message, Suggestions: suggestions}
}

// FallbackReply is shown when the model is unavailable or returns nothing usable.
func FallbackReply(in PromptInput) Reply {
	pb := lookup(in.Language)
	q := in.Quote

	if q.IsFree {
		total := 0
		if q.TotalMinutes != nil {
			total = *q.TotalMinutes
		}
		return Reply{
			Message:     fmt.Sprintf(pb.fallbackFree, total),
			Suggestions: append([]string(nil), pb.suggestFree...),
		}
	}

	var price int64
	if q.PriceCents != nil {
		price = *q.PriceCents
	}
	missing := q.FreeDeliveryShortfall(in.CartTotalCents, in.Policy)

	suggestions := append([]string(nil), pb.suggestPaid...)
	suggestions[0] = fmt.Sprintf(suggestions[0], delivery.FormatPrice(in.Policy.FreeDeliveryFromCents))

	return Reply{
		Message:     fmt.Sprintf(pb.fallbackPaid, delivery.FormatPrice(price), delivery.FormatPrice(missing)),
		Suggestions: suggestions,
	}
}
