// Package util holds display helpers shared by the CLI, the status file and
// the HTTP host.
package util

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DisplayLocale is the locale distances are rendered in: "." groups
// thousands and "," separates decimals.
var DisplayLocale = language.Indonesian

// FormatNumber renders n with at most one fractional digit in DisplayLocale.
func FormatNumber(n float64) string {
	return message.NewPrinter(DisplayLocale).Sprint(number.Decimal(n, number.MaxFractionDigits(1)))
}

// FormatKm renders a distance such as "1.234,5 km".
func FormatKm(km float64) string {
	return FormatNumber(km) + " km"
}

// SavingKm is the distance saved by the triangulation strategy over the
// via-port strategy. Negative when triangulation is longer.
func SavingKm(triangulationKm, viaPortKm float64) float64 {
	return viaPortKm - triangulationKm
}

// ProgressBar draws progress (0..100) as a fixed-width text bar.
func ProgressBar(progress float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(progress / 100 * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
