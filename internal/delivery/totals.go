package delivery

import "errors"

// ErrDeliveryNotAllowed is returned when totals are requested for a refused quote.
var ErrDeliveryNotAllowed = errors.New("delivery not allowed")

// OrderTotals is the amount a customer pays at checkout.
type OrderTotals struct {
	ItemsCents      int64
	DeliveryCents   int64
	GrandTotalCents int64
}

// Totals adds the quoted delivery price to the cart value.
func Totals(itemsCents int64, q Quote) (OrderTotals, error) {
	if !q.Allowed || q.PriceCents == nil {
		return OrderTotals{}, ErrDeliveryNotAllowed
	}
	return OrderTotals{
		ItemsCents:      itemsCents,
		DeliveryCents:   *q.PriceCents,
		GrandTotalCents: itemsCents + *q.PriceCents,
	}, nil
}
