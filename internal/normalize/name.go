package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	multiSpace    = regexp.MustCompile(`\s+`)
	maleGender    = regexp.MustCompile(`(?i)^(Herrn?|Mr\.|Monsieur)\s+`)
	femaleGender  = regexp.MustCompile(`(?i)^(Frau|Mrs\.|Signora)\s+`)
	nameDashSpace = regexp.MustCompile(`([a-z])\-\s+`)
	endsDash      = regexp.MustCompile(`\s+-\s*$`)
	// orgSubSplitter separates an organization name from its detail
	// part: " - ", " | ", ", " or " (".
	orgSubSplitter = regexp.MustCompile(`\s-\s?|\s\|\s|,\s|\s\(`)
	organisedBy    = regexp.MustCompile(`(?i)^(organi?siert|org\. )?(durch|von)?:?\s?`)
	noWord         = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	lastNameCaps   = regexp.MustCompile(`^([^a-z]+) ((?:[A-ZÖÜÄ][^A-Z]+)+)$`)

	titleCaser = cases.Title(language.German)
)

// nameFix is one ordered find/replace applied to every name field.
type nameFix struct {
	re   *regexp.Regexp
	repl string
}

// nameFixes repairs recurring extraction damage. Order matters: the
// outer-punctuation trim runs before whitespace collapsing.
var nameFixes = []nameFix{
	// OCR zero for letter O in "OA" (Oberarzt).
	{regexp.MustCompile(`0A`), "OA"},
	// Line-broken hyphenated names.
	{regexp.MustCompile(`([a-z])\-\s+([A-Z])`), "$1-$2"},
	// Detached sharp s.
	{regexp.MustCompile(` ße `), "ße "},
	// Trailing semicolons.
	{regexp.MustCompile(`;\s*$`), ""},
	// Missing space before house number.
	{regexp.MustCompile(`\.(\d)`), ". $1"},
	// Outer punctuation.
	{regexp.MustCompile(`^[^\p{L}\p{N}]*(.*?)[^\p{L}\p{N}]*$`), "$1"},
	// Tabs, newlines, nbsp.
	{regexp.MustCompile(`\s`), " "},
	// Ellipses.
	{regexp.MustCompile(`\.\.\.`), ""},
}

var wordReplacements = []nameFix{
	{regexp.MustCompile(`e\. V\.`), "e.V."},
	{regexp.MustCompile(`(\S)e\.V\.`), "$1 e.V."},
}

// applyNameFixes runs the ordered repair table over val.
func applyNameFixes(val string) string {
	for _, fix := range nameFixes {
		val = fix.re.ReplaceAllString(val, fix.repl)
	}
	return val
}

// replaceWords applies the registered-association spelling fixes used
// for organization names.
func replaceWords(val string) string {
	for _, fix := range wordReplacements {
		val = fix.re.ReplaceAllString(val, fix.repl)
	}
	return val
}

// titleWords are the tokens recognized as part of an academic or
// professional title prefix. Matching is case-insensitive on the
// dot-stripped token.
var titleWords = map[string]bool{
	"dr": true, "prof": true, "priv": true, "doz": true, "pd": true,
	"univ": true, "med": true, "dent": true, "habil": true, "nat": true,
	"rer": true, "phil": true, "oec": true, "troph": true, "lic": true,
	"pract": true, "stom": true, "univers": true, "mag": true,
	"mba": true, "msc": true, "md": true, "oa": true, "prim": true,
	"ass": true, "assoc": true, "ing": true, "dipl": true,
	"docteur": true, "dottoressa": true, "dott": true,
	"professor": true, "professeur": true,
	"apotheker": true, "apothekerin": true,
	"chefapotheker": true, "chefapothekerin": true,
	"(fh)": true, "h.c": true, "e.h": true,
}

// isTitleToken reports whether one whitespace token belongs to a title
// prefix. Compound tokens ("Dr.-Ing.", "Dipl.-Kfm.", "Prof.Dr.") count
// when every dot/hyphen-separated piece is a title word.
func isTitleToken(token string) bool {
	t := strings.ToLower(strings.TrimRight(token, "."))
	if t == "" {
		return false
	}
	if titleWords[t] {
		return true
	}
	parts := strings.FieldsFunc(t, func(r rune) bool { return r == '.' || r == '-' })
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			continue
		}
		// "Dipl.-Kfm." carries an arbitrary subject after the Dipl.
		if !titleWords[p] && !strings.HasPrefix(t, "dipl") {
			return false
		}
	}
	return true
}

// ExtractTitle splits a leading title prefix off a person name.
// Returns the title (nil when none) and the remaining name. A name
// consisting only of title tokens is returned unchanged.
func ExtractTitle(name string) (*string, string) {
	tokens := strings.Fields(name)
	i := 0
	for i < len(tokens) && isTitleToken(tokens[i]) {
		i++
	}
	if i == 0 {
		return nil, name
	}
	if i == len(tokens) {
		return nil, strings.TrimSpace(name)
	}
	title := strings.Join(tokens[:i], " ")
	return &title, strings.Join(tokens[i:], " ")
}

// isUpper reports whether val is set entirely in capitals. German
// lowercase-only letters are ignored so "MÜLLER" and "WEIß" count.
func isUpper(val string) bool {
	stripped := strings.NewReplacer("ß", "", "ü", "", "ä", "", "ö", "").Replace(val)
	return strings.ToUpper(stripped) == stripped
}

// repairCase title-cases an all-caps value, leaving mixed case alone.
func repairCase(val string) string {
	if isUpper(val) {
		return titleCaser.String(strings.ToLower(val))
	}
	return val
}
