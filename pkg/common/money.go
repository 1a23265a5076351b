package common

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Peso renders an amount as "PHP 1,234,567.89".
func Peso(amount float64) string {
	s := "PHP " + printer.Sprintf("%.2f", math.Abs(amount))
	if amount < 0 {
		return "-" + s
	}
	return s
}

// Percent renders a share in [0, 1] as "42.5%".
func Percent(share float64) string {
	return strconv.FormatFloat(share*100, 'f', 1, 64) + "%"
}
