package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/transparencydata/payments-cli/internal/model"
)

var (
	postcodeRe     = regexp.MustCompile(`\d{4,5}`)
	postcodeCityRe = regexp.MustCompile(`^(.*?),?\s*(\d{4,5})\s*(\p{L}+)`)
	addressCityRe  = regexp.MustCompile(`^(.*\d[a-z]?),\s(.+)$`)
	// streetSuffix abbreviates the spelled-out German street suffix so
	// "Hauptstrasse 1" and "Hauptstr. 1" compare equal downstream.
	streetSuffix = regexp.MustCompile(`([Ss])(trasse|traße)($|[^\p{L}\p{N}_])`)
	// badHouseNumber detects truncated house number ranges like
	// "Hauptstr. 1214" that were "12-14" in the source.
	badHouseNumber = regexp.MustCompile(`(\D)(\d{2})(\d{2})$`)
)

// AddressRule is a company-specific address parser. It returns field
// overrides (address, location, postcode, recipient_detail) extracted
// from the raw address. A rule that cannot parse its input returns an
// error; the caller surfaces it with the offending address attached
// rather than continuing with a half-cleaned record.
type AddressRule func(address string) (map[string]string, error)

// addressRules registers the named rules a settings file may reference.
var addressRules = map[string]AddressRule{
	"trailing_location_parens": trailingLocationParens,
}

// trailingLocationParens parses "Street 1 (City)" layouts.
func trailingLocationParens(address string) (map[string]string, error) {
	open := strings.LastIndex(address, "(")
	if open < 0 || !strings.HasSuffix(address, ")") {
		return nil, eris.Errorf("normalize: address %q does not match street (city) layout", address)
	}
	return map[string]string{
		"address":  strings.TrimSpace(address[:open]),
		"location": strings.TrimSpace(address[open+1 : len(address)-1]),
	}, nil
}

// extractPostcode pulls a 4-5 digit postcode out of val, returning the
// cleaned value and the postcode ("" when none).
func extractPostcode(val string) (string, string) {
	m := postcodeRe.FindString(val)
	if m == "" {
		return val, ""
	}
	return strings.TrimSpace(strings.Replace(val, m, "", 1)), m
}

// cleanLocation repairs the location field: case, embedded postcode,
// extraction damage.
func (n *Normalizer) cleanLocation(r *model.Record, cfg CompanyConfig) {
	if r.Location == nil {
		return
	}
	loc := repairCase(*r.Location)
	if !cfg.NoPostcode {
		var pc string
		loc, pc = extractPostcode(loc)
		if pc != "" && r.Postcode == nil {
			r.Postcode = &pc
		}
	}
	loc = applyNameFixes(loc)
	r.Location = &loc
}

// cleanAddress repairs the address field and fills location/postcode
// from it when the source embeds them.
func (n *Normalizer) cleanAddress(r *model.Record, cfg CompanyConfig) error {
	n.cleanLocation(r, cfg)
	if r.Address == nil {
		return nil
	}

	addr := repairCase(*r.Address)
	addr = streetSuffix.ReplaceAllString(addr, "${1}tr.$3")

	if cfg.CompanyInAddress {
		// The employer precedes the street: move it to the detail field.
		if head, rest, ok := splitLast(addr, ", ", 3); ok {
			addr = rest
			if r.RecipientDetail != nil {
				detail := *r.RecipientDetail + ", " + head
				r.RecipientDetail = &detail
			} else {
				r.RecipientDetail = &head
			}
		}
	}

	if cfg.AddressRule != "" {
		rule := addressRules[cfg.AddressRule]
		overrides, err := rule(addr)
		if err != nil {
			return eris.Wrapf(err, "normalize: address rule %q failed on %q", cfg.AddressRule, addr)
		}
		if v, ok := overrides["address"]; ok {
			addr = v
		}
		if v, ok := overrides["location"]; ok {
			r.Location = &v
		}
		if v, ok := overrides["postcode"]; ok {
			r.Postcode = &v
		}
		if v, ok := overrides["recipient_detail"]; ok {
			r.RecipientDetail = &v
		}
	}

	if !cfg.NoPostcode {
		if m := postcodeCityRe.FindStringSubmatch(addr); m != nil {
			addr = strings.TrimSpace(m[1])
			r.Postcode = &m[2]
		} else {
			var pc string
			addr, pc = extractPostcode(addr)
			if pc != "" {
				r.Postcode = &pc
			}
		}
	}

	if r.Location == nil {
		if m := addressCityRe.FindStringSubmatch(addr); m != nil {
			addr = strings.TrimSpace(m[1])
			loc := strings.TrimSpace(m[2])
			r.Location = &loc
		}
	} else {
		n.cleanLocation(r, cfg)
	}

	addr = applyNameFixes(addr)
	addr = fixHouseNumberRange(addr)
	r.Address = &addr
	return nil
}

// fixHouseNumberRange restores the dash in a collapsed house number
// range when the halves are close enough to be a plausible range.
func fixHouseNumberRange(addr string) string {
	m := badHouseNumber.FindStringSubmatch(addr)
	if m == nil {
		return addr
	}
	n1, _ := strconv.Atoi(m[2])
	n2, _ := strconv.Atoi(m[3])
	if n2-n1 >= 5 || n1-n2 >= 5 {
		return addr
	}
	return badHouseNumber.ReplaceAllString(addr, fmt.Sprintf("${1}%d-%d", n1, n2))
}

// splitLast splits s on the last occurrences of sep so that at most n
// chunks result, returning the first chunk and the rejoined remainder.
func splitLast(s, sep string, n int) (head, rest string, ok bool) {
	parts := strings.Split(s, sep)
	if len(parts) < n {
		return "", "", false
	}
	head = strings.Join(parts[:len(parts)-n+1], sep)
	rest = strings.Join(parts[len(parts)-n+1:], sep)
	return head, rest, true
}
