package delivery

import "fmt"

// WindowSlackMinutes is the margin shown on either side of a delivery estimate.
const WindowSlackMinutes = 5

// FormatWindow renders an estimate as a range, e.g. 28 -> "23–33 min".
// Toasts and assistant prompts rely on this exact shape.
func FormatWindow(totalMinutes int) string {
	return fmt.Sprintf("%d–%d min", totalMinutes-WindowSlackMinutes, totalMinutes+WindowSlackMinutes)
}

// FormatPrice renders minor currency units as złoty, e.g. 1100 -> "11.00 zł".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d zł", sign, cents/100, cents%100)
}
