// Package assistant builds the prompt for the checkout delivery assistant and
// turns the model's reply into a message plus quick-action suggestions.
//
// The package never calls a model itself. It only consumes delivery quotes,
// so every number in a prompt comes from delivery.QuoteFor.
package assistant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wokexpress/storefront/internal/delivery"
)

// ErrQuoteNotAllowed is returned when a prompt is requested for a refused delivery.
var ErrQuoteNotAllowed = errors.New("assistant prompt requires an allowed delivery quote")

// Language selects the prompt and fallback wording.
type Language string

const (
	Polish    Language = "pl"
	Russian   Language = "ru"
	Ukrainian Language = "uk"
	English   Language = "en"
)

// ParseLanguage maps a client language tag to a supported Language,
// falling back to English.
func ParseLanguage(tag string) Language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if _, ok := phrasebooks[Language(tag)]; ok {
		return Language(tag)
	}
	return English
}

// PromptInput is everything the assistant is told about a delivery.
type PromptInput struct {
	Quote          delivery.Quote
	CartTotalCents int64
	Language       Language
	Policy         delivery.PolicyConfig
}

// Prompt is a two-message chat prompt.
type Prompt struct {
	System string
	User   string
}

// BuildDeliveryPrompt renders the system and user messages for in.
func BuildDeliveryPrompt(in PromptInput) (Prompt, error) {
	q := in.Quote
	if !q.Allowed || q.TravelMinutes == nil || q.TotalMinutes == nil || q.PriceCents == nil {
		return Prompt{}, ErrQuoteNotAllowed
	}
	pb := lookup(in.Language)

	cost := delivery.FormatPrice(*q.PriceCents)
	if q.IsFree {
		cost = fmt.Sprintf(pb.freeCost, delivery.FormatPrice(0), delivery.FormatPrice(in.Policy.FreeDeliveryFromCents))
	}

	var b strings.Builder
	b.WriteString(pb.intro)
	b.WriteString("\n\n")
	b.WriteString(pb.header)
	b.WriteString("\n")
	fmt.Fprintf(&b, "- %s: %.1f %s\n", pb.distance, q.DistanceKm, pb.km)
	fmt.Fprintf(&b, "- %s: %d %s\n", pb.travel, *q.TravelMinutes, pb.min)
	fmt.Fprintf(&b, "- %s: %s\n", pb.cost, cost)
	fmt.Fprintf(&b, "- %s: %s\n", pb.cart, delivery.FormatPrice(in.CartTotalCents))
	fmt.Fprintf(&b, "- %s: %s ("+pb.breakdown+")\n",
		pb.total, delivery.FormatWindow(*q.TotalMinutes), q.PreparationMinutes, *q.TravelMinutes)
	b.WriteString("\n")
	b.WriteString(pb.instruction)

	if missing := q.FreeDeliveryShortfall(in.CartTotalCents, in.Policy); missing > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, pb.shortfall, delivery.FormatPrice(missing))
	}

	return Prompt{System: b.String(), User: userInstruction}, nil
}

const userInstruction = "Create the message and suggest actions (format: MESSAGE | action1, action2, action3)"

// phrasebook holds the per-language wording of prompts and fallbacks.
type phrasebook struct {
	intro       string
	header      string
	distance    string
	travel      string
	cost        string
	freeCost    string // price, threshold
	cart        string
	total       string
	breakdown   string // preparation, travel
	instruction string
	shortfall   string // missing amount
	km          string
	min         string

	fallbackFree string   // total minutes
	fallbackPaid string   // price, missing amount
	suggestFree  []string
	suggestPaid  []string // first entry takes the free delivery threshold
}

func lookup(lang Language) phrasebook {
	if pb, ok := phrasebooks[lang]; ok {
		return pb
	}
	return phrasebooks[English]
}

var phrasebooks = map[Language]phrasebook{
	Polish: {
		intro:        "Jesteś pomocnym asystentem dostawy w restauracji.",
		header:       "Informacje o dostawie:",
		distance:     "Odległość",
		travel:       "Czas dojazdu",
		cost:         "Koszt dostawy",
		freeCost:     "%s (bezpłatnie od %s)",
		cart:         "Wartość koszyka",
		total:        "Całkowity czas",
		breakdown:    "przygotowanie ~%d min + dostawa ~%d min",
		instruction:  "Napisz krótką (1-2 zdania), przyjazną wiadomość o dostawie. Zasugeruj konkretne działania w formie przycisków (3-4 opcje).",
		shortfall:    "Wspomnij, że do darmowej dostawy brakuje %s.",
		km:           "km",
		min:          "min",
		fallbackFree: "Świetnie! Darmowa dostawa w ~%d min.",
		fallbackPaid: "Dostawa %s. Do darmowej brakuje %s.",
		suggestFree:  []string{"Potwierdź adres", "Zmień adres", "Dodaj komentarz"},
		suggestPaid:  []string{"Dodaj do %s", "Potwierdź adres", "Płacę za dostawę"},
	},
	Russian: {
		intro:        "Ты полезный помощник по доставке в ресторане.",
		header:       "Информация о доставке:",
		distance:     "Расстояние",
		travel:       "Время в пути",
		cost:         "Стоимость доставки",
		freeCost:     "%s (бесплатно от %s)",
		cart:         "Сумма корзины",
		total:        "Общее время",
		breakdown:    "приготовление ~%d мин + доставка ~%d мин",
		instruction:  "Напиши короткое (1-2 предложения), дружелюбное сообщение о доставке. Предложи конкретные действия в виде кнопок (3-4 варианта).",
		shortfall:    "Упомяни, что до бесплатной доставки не хватает %s.",
		km:           "км",
		min:          "мин",
		fallbackFree: "Отлично! Бесплатная доставка за ~%d мин.",
		fallbackPaid: "Доставка %s. До бесплатной не хватает %s.",
		suggestFree:  []string{"Подтвердить адрес", "Изменить адрес", "Добавить комментарий"},
		suggestPaid:  []string{"Добавить до %s", "Подтвердить адрес", "Оплачу доставку"},
	},
	Ukrainian: {
		intro:        "Ти корисний помічник з доставки в ресторані.",
		header:       "Інформація про доставку:",
		distance:     "Відстань",
		travel:       "Час у дорозі",
		cost:         "Вартість доставки",
		freeCost:     "%s (безкоштовно від %s)",
		cart:         "Сума кошика",
		total:        "Загальний час",
		breakdown:    "приготування ~%d хв + доставка ~%d хв",
		instruction:  "Напиши коротке (1-2 речення), дружнє повідомлення про доставку. Запропонуй конкретні дії у вигляді кнопок (3-4 варіанти).",
		shortfall:    "Згадай, що до безкоштовної доставки не вистачає %s.",
		km:           "км",
		min:          "хв",
		fallbackFree: "Чудово! Безкоштовна доставка за ~%d хв.",
		fallbackPaid: "Доставка %s. До безкоштовної не вистачає %s.",
		suggestFree:  []string{"Підтвердити адресу", "Змінити адресу", "Додати коментар"},
		suggestPaid:  []string{"Додати до %s", "Підтвердити адресу", "Оплачу доставку"},
	},
	English: {
		intro:        "You are a helpful delivery assistant at a restaurant.",
		header:       "Delivery information:",
		distance:     "Distance",
		travel:       "Travel time",
		cost:         "Delivery cost",
		freeCost:     "%s (free from %s)",
		cart:         "Cart total",
		total:        "Total time",
		breakdown:    "preparation ~%d min + delivery ~%d min",
		instruction:  "Write a short (1-2 sentences), friendly message about the delivery. Suggest specific actions as buttons (3-4 options).",
		shortfall:    "Mention that %s is needed for free delivery.",
		km:           "km",
		min:          "min",
		fallbackFree: "Great! Free delivery in ~%d min.",
		fallbackPaid: "Delivery %s. %s needed for free.",
		suggestFree:  []string{"Confirm address", "Change address", "Add comment"},
		suggestPaid:  []string{"Add to %s", "Confirm address", "Pay for delivery"},
	},
}
