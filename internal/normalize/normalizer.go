package normalize

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/model"
)

// weirdSpace finds a short lowercase fragment detached from the word
// before it, the signature artifact of PDF text extraction ("Mül ler").
var weirdSpace = regexp.MustCompile(`(\p{Ll}+)\s(\p{Ll}{1,3}\.?)([^\p{L}\p{N}_]|$)`)

// germanParticles are legitimate short lowercase words that look like
// spacing artifacts but are not.
var germanParticles = map[string]bool{
	"von": true, "van": true, "für": true, "der": true, "die": true,
	"das": true, "am": true, "und": true, "im": true, "des": true,
	"an": true, "in": true, "dem": true, "zur": true, "mit": true,
}

// Normalizer cleans raw records according to per-company settings.
// It holds no global state: the anomaly counter is injected per batch
// run and discarded with it.
type Normalizer struct {
	settings  *Settings
	anomalies *AnomalyCounter
}

// NewNormalizer creates a Normalizer over the given settings and
// anomaly counter.
func NewNormalizer(settings *Settings, anomalies *AnomalyCounter) *Normalizer {
	return &Normalizer{settings: settings, anomalies: anomalies}
}

// Clean normalizes one record in place: name repair, title and gender
// extraction, person/organization name splitting, address and location
// cleanup, country canonicalization. The record's type is never
// changed. A failing company address rule aborts this record with the
// offending address in the error.
func (n *Normalizer) Clean(r *model.Record) error {
	cfg := n.settings.For(r.Company)

	if r.Name != nil {
		n.cleanName(r, cfg)
		n.splitName(r, cfg)
	}

	if err := n.cleanAddress(r, cfg); err != nil {
		return err
	}

	country := Country(r.Country, n.settings.DefaultCountry)
	r.Country = &country
	if r.Origin == "" {
		r.Origin = strings.ToLower(n.settings.DefaultCountry)
	}
	return nil
}

// CleanAll normalizes a batch, collecting per-record failures into one
// error while continuing with the rest.
func (n *Normalizer) CleanAll(records []*model.Record) error {
	var failed int
	var firstErr error
	for _, r := range records {
		if err := n.Clean(r); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			zap.L().Error("normalize: record failed",
				zap.Int64("record_id", r.ID),
				zap.String("company", r.Company),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		return eris.Wrapf(firstErr, "normalize: %d of %d records failed", failed, len(records))
	}
	return nil
}

// cleanName repairs the raw name and, for persons, strips salutations
// and extracts the academic title.
func (n *Normalizer) cleanName(r *model.Record, cfg CompanyConfig) {
	name := applyNameFixes(*r.Name)

	if r.Type == model.TypePerson {
		if m := maleGender.FindString(name); m != "" {
			name = strings.TrimSpace(maleGender.ReplaceAllString(name, ""))
			g := "Herr"
			r.Gender = &g
		}
		if m := femaleGender.FindString(name); m != "" {
			name = strings.TrimSpace(femaleGender.ReplaceAllString(name, ""))
			g := "Frau"
			r.Gender = &g
		}

		if cfg.SemicolonNameSplit {
			name = strings.Join(strings.Split(name, ";"), " ")
		}

		switch {
		case cfg.CommaSplitTitle:
			if idx := strings.Index(name, ","); idx >= 0 {
				title := strings.TrimSpace(name[idx+1:])
				r.Title = &title
				name = name[:idx]
			}
		case cfg.CommaSplitTitleName:
			parts := strings.SplitN(name, ",", 3)
			if len(parts) == 3 {
				title := strings.TrimSpace(parts[1])
				r.Title = &title
				name = parts[0] + "," + parts[2]
			}
		default:
			title, rest := ExtractTitle(name)
			if title != nil {
				r.Title = title
			}
			name = rest
		}
	}

	if isUpper(name) && len([]rune(name)) > 4 {
		name = repairCase(name)
	}
	r.Name = &name
}

// splitName fills first/last name for persons and name/detail for
// organizations.
func (n *Normalizer) splitName(r *model.Record, cfg CompanyConfig) {
	if r.Type == model.TypeOrganization {
		n.splitOrgName(r, cfg)
		return
	}
	if r.FirstName != nil && *r.FirstName != "" {
		return
	}

	name := *r.Name
	var parts []string
	if strings.Contains(name, ",") {
		// "Weber, Anna" is already last-first with a marker.
		split := strings.SplitN(name, ",", 2)
		parts = []string{split[1], split[0]}
	} else if cfg.BadNameOrder {
		if cfg.LastNameCapitals {
			if m := lastNameCaps.FindStringSubmatch(name); m != nil {
				parts = []string{m[2], m[1]}
			} else {
				n.anomalies.Inc("last_name_capitals:" + r.Company)
				parts = strings.SplitN(name, " ", 2)
				if len(parts) == 2 {
					parts = []string{parts[1], parts[0]}
				}
			}
		} else {
			split := strings.SplitN(name, " ", 2)
			if len(split) == 2 {
				parts = []string{split[1], split[0]}
			} else {
				parts = split
			}
		}
	} else {
		if idx := strings.LastIndex(name, " "); idx >= 0 {
			parts = []string{name[:idx], name[idx+1:]}
		} else {
			parts = []string{name}
		}
	}

	for i := range parts {
		parts[i] = multiSpace.ReplaceAllString(strings.TrimSpace(parts[i]), " ")
		parts[i] = repairCase(parts[i])
	}

	full := strings.TrimSpace(strings.Join(parts, " "))
	last := parts[len(parts)-1]
	first := strings.TrimSpace(strings.Join(parts[:len(parts)-1], " "))

	for _, v := range []*string{&full, &first, &last} {
		*v = nameDashSpace.ReplaceAllString(*v, "$1-")
		if !cfg.NoPDF {
			n.countSpacingArtifacts(*v, r.Company)
		}
	}

	r.Name = &full
	r.LastName = &last
	if first != "" {
		r.FirstName = &first
	}
}

// splitOrgName separates an organization name from a department or
// event detail, handling "organised by" inversions.
func (n *Normalizer) splitOrgName(r *model.Record, cfg CompanyConfig) {
	name := *r.Name
	if loc := orgSubSplitter.FindStringIndex(name); loc != nil {
		head := name[:loc[0]]
		detail := strings.TrimSpace(name[loc[1]:])
		ok := true

		if strings.HasSuffix(head, "-") {
			ok = false
		}
		detail = strings.ReplaceAll(detail, ")", "")

		// "Conference X - organised by Society Y": the detail is the
		// real recipient.
		if m := organisedBy.FindString(detail); len(m) > 4 {
			detail = organisedBy.ReplaceAllString(detail, "")
			head, detail = detail, head
		}
		if m := organisedBy.FindString(head); len(m) > 4 {
			head = organisedBy.ReplaceAllString(head, "")
		}

		if len(head) < 5 || (isUpper(noWord.ReplaceAllString(head, "")) && len(head) < 6) {
			ok = false
		}
		if strings.HasPrefix(strings.TrimSpace(detail), "und") {
			ok = false
		}
		if ok {
			name = head
			r.RecipientDetail = &detail
		}
	}

	name = strings.TrimSpace(endsDash.ReplaceAllString(name, ""))
	if !cfg.NoPDF {
		n.countSpacingArtifacts(name, r.Company)
	}
	name = replaceWords(name)
	r.Name = &name
}

// countSpacingArtifacts tallies suspected PDF spacing damage without
// attempting a repair; automated rejoining broke more names than it
// fixed, so the counter only feeds diagnostics.
func (n *Normalizer) countSpacingArtifacts(val, company string) {
	for _, m := range weirdSpace.FindAllStringSubmatch(val, -1) {
		frag := strings.TrimSuffix(m[2], ".")
		if germanParticles[frag] {
			continue
		}
		n.anomalies.Inc("spacing:" + company)
	}
}
