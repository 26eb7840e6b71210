package series

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeSymbol converts user input into the canonical Hong Kong listing
// code: four digits plus the ".HK" suffix.
//
// Accepted inputs: "700", "0700", "0700.HK", "700.hk" (case-insensitive).
func NormalizeSymbol(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("symbol must not be empty")
	}

	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.TrimSuffix(s, ".HK")

	var digits strings.Builder
	for _, ch := range s {
		if unicode.IsDigit(ch) {
			digits.WriteRune(ch)
		}
	}

	d := digits.String()
	if len(d) == 0 || len(d) > 5 {
		return "", fmt.Errorf("invalid HK symbol: %q", input)
	}

	// HK listings are conventionally quoted with four digits, e.g. 0700.HK
	for len(d) < 4 {
		d = "0" + d
	}

	return d + ".HK", nil
}
