// Package normalize cleans raw disclosure fields (names, addresses,
// money strings, countries) according to per-source-company settings.
package normalize

import (
	"bytes"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CompanyConfig enumerates the recognized normalization behaviors of
// one source company's disclosure report. Unknown keys in the settings
// file are a validation error, not a silent no-op.
type CompanyConfig struct {
	// NoPDF marks reports not extracted from PDF; spacing-artifact
	// detection is skipped for them.
	NoPDF bool `yaml:"no_pdf"`
	// BadNameOrder marks reports listing person names last-first.
	BadNameOrder bool `yaml:"bad_name_order"`
	// LastNameCapitals marks last-first reports that set the last name
	// in capitals, needed to find the split point.
	LastNameCapitals bool `yaml:"last_name_capitals"`
	// NoPostcode marks reports whose address/location fields never
	// embed a postcode, disabling postcode extraction.
	NoPostcode bool `yaml:"no_postcode"`
	// CompanyInAddress marks reports that prefix the recipient address
	// with the recipient's employer/organization.
	CompanyInAddress bool `yaml:"company_in_address"`
	// SemicolonNameSplit marks reports separating name parts with
	// semicolons.
	SemicolonNameSplit bool `yaml:"semicolon_name_split"`
	// CommaSplitTitle marks reports appending the academic title after
	// a comma ("Weber, Dr. med.").
	CommaSplitTitle bool `yaml:"comma_split_title"`
	// CommaSplitTitleName marks reports interleaving the title between
	// two name parts ("Weber, Dr. med., Anna").
	CommaSplitTitleName bool `yaml:"comma_split_title_name"`
	// AddressRule names a registered custom address parser for this
	// company, applied before generic address cleaning.
	AddressRule string `yaml:"address_rule"`
}

// Settings holds per-company normalization configuration for one
// disclosure dataset.
type Settings struct {
	// DefaultCountry is assumed when a record carries no country.
	DefaultCountry string `yaml:"default_country"`
	// Companies maps source company identifiers to their config.
	Companies map[string]CompanyConfig `yaml:"companies"`
}

// LoadSettings reads and validates a YAML settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: read settings")
	}
	return ParseSettings(data)
}

// ParseSettings parses YAML settings. Unknown fields are rejected so a
// typo in a flag name fails loudly instead of silently disabling it.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, eris.Wrap(err, "normalize: parse settings")
	}
	if s.DefaultCountry == "" {
		s.DefaultCountry = "DE"
	}
	for company, cfg := range s.Companies {
		if cfg.AddressRule != "" {
			if _, ok := addressRules[cfg.AddressRule]; !ok {
				return nil, eris.Errorf("normalize: company %q references unknown address rule %q", company, cfg.AddressRule)
			}
		}
		if cfg.LastNameCapitals && !cfg.BadNameOrder {
			return nil, eris.Errorf("normalize: company %q sets last_name_capitals without bad_name_order", company)
		}
	}
	return &s, nil
}

// For returns the config for a company; zero config when unlisted.
func (s *Settings) For(company string) CompanyConfig {
	return s.Companies[company]
}
