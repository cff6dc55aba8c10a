// Package ingest turns raw disclosure report files into records, one
// source config per published report.
package ingest

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/transparencydata/payments-cli/internal/model"
)

// Source describes one published disclosure report and how to read it.
type Source struct {
	Company  string `yaml:"company"`
	Origin   string `yaml:"origin"`
	Currency string `yaml:"currency"`
	Year     int    `yaml:"year"`

	// Type fixes the recipient type for every row. Leave empty when the
	// report mixes types and carries a type column instead.
	Type model.RecipientType `yaml:"type"`

	// Format is "csv" or "xlsx".
	Format string `yaml:"format"`

	// URL is the remote report location; Path a local file. Path wins
	// when both are set.
	URL  string `yaml:"url"`
	Path string `yaml:"path"`

	// ZipEntry names the report file inside a zipped download. Empty
	// means the archive holds exactly one file.
	ZipEntry string `yaml:"zip_entry"`

	Delimiter string `yaml:"delimiter"` // csv only, default ";"
	Sheet     string `yaml:"sheet"`     // xlsx only
	SkipRows  int    `yaml:"skip_rows"` // xlsx preamble rows

	// Columns maps record fields to report column headers.
	Columns map[string]string `yaml:"columns"`

	// TypeMap translates type column values ("HCP", "HCO", ...) to
	// recipient types when Type is empty.
	TypeMap map[string]model.RecipientType `yaml:"type_map"`
}

// recordFields lists the mappable descriptive column keys.
var recordFields = []string{
	"name", "first_name", "last_name", "title", "gender",
	"recipient_detail", "address", "location", "country", "postcode",
	"type",
}

// SourceList is the root of a sources config file.
type SourceList struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads and validates a sources config file.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read sources")
	}

	var list SourceList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, eris.Wrap(err, "ingest: parse sources")
	}

	for i := range list.Sources {
		if err := list.Sources[i].validate(); err != nil {
			return nil, err
		}
	}
	return list.Sources, nil
}

func (s *Source) validate() error {
	if s.Company == "" {
		return eris.New("ingest: source missing company")
	}
	if s.Year == 0 {
		return eris.Errorf("ingest: source %s missing year", s.Company)
	}
	if s.Format != "csv" && s.Format != "xlsx" {
		return eris.Errorf("ingest: source %s has unknown format %q", s.Company, s.Format)
	}
	if s.URL == "" && s.Path == "" {
		return eris.Errorf("ingest: source %s has neither url nor path", s.Company)
	}
	if s.Type == "" && s.Columns["type"] == "" {
		return eris.Errorf("ingest: source %s needs a fixed type or a type column", s.Company)
	}
	if s.Type != "" && s.Type != model.TypePerson && s.Type != model.TypeOrganization {
		return eris.Errorf("ingest: source %s has unknown type %q", s.Company, s.Type)
	}

	known := make(map[string]bool, len(recordFields)+len(model.AmountFields)+1)
	for _, f := range recordFields {
		known[f] = true
	}
	for _, f := range model.AmountFields {
		known[f] = true
	}
	known["total"] = true
	for field := range s.Columns {
		if !known[field] {
			return eris.Errorf("ingest: source %s maps unknown field %q", s.Company, field)
		}
	}

	if s.Origin == "" {
		s.Origin = "de"
	}
	if s.Currency == "" {
		s.Currency = "EUR"
	}
	if s.Delimiter == "" {
		s.Delimiter = ";"
	}
	return nil
}
