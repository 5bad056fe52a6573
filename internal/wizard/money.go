package wizard

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const CurrencyCode = "PHP"

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount for display, e.g. "PHP 1,500.00".
func FormatMoney(amount float64) string {
	return moneyPrinter.Sprintf("%s %.2f", CurrencyCode, amount)
}
