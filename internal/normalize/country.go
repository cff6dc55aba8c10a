package normalize

import "strings"

// Country canonicalizes a free-text country value to a two-letter
// code, defaulting when absent. Unrecognized values are uppercased and
// passed through.
func Country(val *string, def string) string {
	if val == nil || *val == "" {
		return def
	}
	v := strings.ToLower(*val)
	switch {
	case strings.Contains(v, "germany"), strings.Contains(v, "deutschland"), v == "de":
		return "DE"
	case strings.Contains(v, "austria"), strings.Contains(v, "sterreich"), v == "at":
		return "AT"
	case strings.Contains(v, "niederlande"), strings.Contains(v, "netherlands"):
		return "NL"
	case strings.Contains(v, "schweiz"), strings.Contains(v, "switzerland"), v == "ch":
		return "CH"
	case strings.Contains(v, "kroatien"), strings.Contains(v, "croatia"):
		return "HR"
	case strings.Contains(v, "france"), strings.Contains(v, "frankreich"):
		return "FR"
	case strings.Contains(*val, "USA"):
		return "US"
	}
	return strings.ToUpper(*val)
}
