package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	currencyRe = regexp.MustCompile(`(?i)EUR|Euro|€|CHF`)
	// decimalRe recognizes a trailing decimal part of one or two
	// digits, capturing its separator so thousand separators can be
	// disambiguated.
	decimalRe = regexp.MustCompile(`^.*([.,])\d{1,2}$`)
)

// Money parses a locale-formatted money string into a positive amount.
// Placeholder values ("-", "N/A") and non-positive amounts come back
// nil. Currency markers, spaces, Swiss apostrophe thousand separators,
// and both decimal-comma and decimal-point notations are handled.
func Money(val string) (*float64, error) {
	val = strings.TrimSpace(val)
	if val == "" || val == "-" || val == "N/A" || val == "NA" {
		return nil, nil
	}

	val = strings.ReplaceAll(val, "'", "")
	val = strings.TrimSpace(currencyRe.ReplaceAllString(val, ""))
	val = strings.ReplaceAll(val, " ", "")
	val = strings.ReplaceAll(val, " ", "")

	if m := decimalRe.FindStringSubmatch(val); m != nil {
		if m[1] == "," {
			val = strings.ReplaceAll(val, ".", "")
			val = strings.Replace(val, ",", ".", 1)
		} else {
			val = strings.ReplaceAll(val, ",", "")
		}
	}
	// Any comma left over is a thousand separator.
	val = strings.ReplaceAll(val, ",", "")

	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: parse money %q", val)
	}
	if f <= 0 {
		return nil, nil
	}
	return &f, nil
}
