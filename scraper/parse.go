package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	moneyRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]{1,2})?)`)
	milesRe = regexp.MustCompile(`(\d{1,6})\s*mile`)
)

// ParseMoney extracts the first money amount from display text, ignoring
// thousands separators. Returns 0 when no amount is present.
func ParseMoney(text string) float64 {
	if text == "" {
		return 0
	}
	m := moneyRe.FindStringSubmatch(strings.ReplaceAll(text, ",", ""))
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseMiles extracts an included-miles figure from display text. Nil
// means unknown; unlimited mileage is also nil.
func ParseMiles(text string) *int {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "unlimited") {
		return nil
	}
	m := milesRe.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}
