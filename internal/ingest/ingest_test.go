package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparencydata/payments-cli/internal/model"
	"github.com/transparencydata/payments-cli/internal/normalize"
)

func personSource() Source {
	return Source{
		Company:  "Pharma AG",
		Origin:   "de",
		Currency: "EUR",
		Year:     2023,
		Type:     model.TypePerson,
		Format:   "csv",
		Path:     "report.csv",
		Columns: map[string]string{
			"name":     "Name",
			"location": "Ort",
			"address":  "Anschrift",
			"fees":     "Honorare",
			"total":    "Gesamt",
		},
	}
}

func TestParseRows_Person(t *testing.T) {
	ing := New(nil)
	header := []string{"Name", "Ort", "Anschrift", "Honorare", "Gesamt"}
	rows := [][]string{
		{"Dr. Anna Weber", "Berlin", "Hauptstr. 5", "250,00", "250,00"},
		{"Dr. Max Maier", "Hamburg", "", "1.000,50", "1.000,50"},
	}

	records, err := ing.ParseRows(personSource(), header, rows)
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, model.TypePerson, r.Type)
	assert.Equal(t, "Pharma AG", r.Company)
	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, "Dr. Anna Weber", *r.Name)
	assert.Equal(t, "Berlin", *r.Location)
	assert.Equal(t, 250.0, *r.Fees)
	assert.Equal(t, 250.0, *r.Total)
	assert.Equal(t, "250,00", r.TotalDirty)

	assert.Equal(t, 1000.50, *records[1].Fees)
	assert.Nil(t, records[1].Address)
}

func TestParseRows_TypeColumn(t *testing.T) {
	src := personSource()
	src.Type = ""
	src.Columns["type"] = "Empfänger"
	src.TypeMap = map[string]model.RecipientType{
		"HCP": model.TypePerson,
		"HCO": model.TypeOrganization,
	}

	ing := New(nil)
	header := []string{"Name", "Ort", "Anschrift", "Honorare", "Gesamt", "Empfänger"}
	rows := [][]string{
		{"Dr. Anna Weber", "Berlin", "", "", "", "HCP"},
		{"Klinikum Nord", "Hamburg", "", "", "", "HCO"},
		{"Unbekannt", "Kiel", "", "", "", "XXX"},
	}

	records, err := ing.ParseRows(src, header, rows)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.TypePerson, records[0].Type)
	assert.Equal(t, model.TypeOrganization, records[1].Type)
}

func TestParseRows_SkipsNamelessAndCountsAnomalies(t *testing.T) {
	counter := normalize.NewAnomalyCounter()
	ing := New(counter)
	header := []string{"Name", "Ort", "Anschrift", "Honorare", "Gesamt"}
	rows := [][]string{
		{"", "Berlin", "", "250,00", ""},
		{"Dr. Anna Weber", "Berlin", "", "kaputt", ""},
	}

	records, err := ing.ParseRows(personSource(), header, rows)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Fees)
	assert.Equal(t, 2, counter.Total())
}

func TestParseRows_MissingColumn(t *testing.T) {
	ing := New(nil)
	_, err := ing.ParseRows(personSource(), []string{"Name", "Ort"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in header")
}

func TestReadSource_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	content := "Name;Ort;Anschrift;Honorare;Gesamt\nDr. Anna Weber;Berlin;Hauptstr. 5;250,00;250,00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src := personSource()
	src.Path = path
	src.Delimiter = ";"

	ing := New(nil)
	records, err := ing.ReadSource(context.Background(), src, dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Dr. Anna Weber", *records[0].Name)
}

func TestSourceLocalPath(t *testing.T) {
	src := Source{Company: "Pharma AG", Year: 2023, Format: "csv"}
	assert.Equal(t, filepath.Join("data", "pharma-ag_2023.csv"), src.LocalPath("data"))

	src.Path = "/tmp/fixed.csv"
	assert.Equal(t, "/tmp/fixed.csv", src.LocalPath("data"))
}

func TestLoadSources_Validation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")

	valid := `
sources:
  - company: Pharma AG
    year: 2023
    type: person
    format: csv
    path: report.csv
    columns:
      name: Name
`
	require.NoError(t, os.WriteFile(path, []byte(valid), 0o644))
	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "de", sources[0].Origin)
	assert.Equal(t, "EUR", sources[0].Currency)
	assert.Equal(t, ";", sources[0].Delimiter)

	invalid := `
sources:
  - company: Pharma AG
    year: 2023
    type: person
    format: pdf
    path: report.pdf
`
	require.NoError(t, os.WriteFile(path, []byte(invalid), 0o644))
	_, err = LoadSources(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")

	noType := `
sources:
  - company: Pharma AG
    year: 2023
    format: csv
    path: report.csv
`
	require.NoError(t, os.WriteFile(path, []byte(noType), 0o644))
	_, err = LoadSources(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a fixed type")
}
