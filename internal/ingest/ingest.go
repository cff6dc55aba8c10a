package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/fetcher"
	"github.com/transparencydata/payments-cli/internal/model"
	"github.com/transparencydata/payments-cli/internal/normalize"
)

// Ingester parses report rows into records. Money parse failures are
// counted against the anomaly counter and leave the field nil.
type Ingester struct {
	anomalies *normalize.AnomalyCounter
}

// New creates an Ingester. The counter may be shared with the cleaning
// stage.
func New(anomalies *normalize.AnomalyCounter) *Ingester {
	if anomalies == nil {
		anomalies = normalize.NewAnomalyCounter()
	}
	return &Ingester{anomalies: anomalies}
}

// Anomalies exposes the counter for reporting after a run.
func (i *Ingester) Anomalies() *normalize.AnomalyCounter {
	return i.anomalies
}

// LocalPath returns where the source's report lives on disk: its
// configured path, or the canonical download location under dataDir.
func (s *Source) LocalPath(dataDir string) string {
	if s.Path != "" {
		return s.Path
	}
	name := fmt.Sprintf("%s_%d.%s", slug.Make(s.Company), s.Year, s.Format)
	return filepath.Join(dataDir, name)
}

// ReadSource reads the source's report file and parses every row into
// a record stamped with the source's company, origin, currency, and
// year.
func (i *Ingester) ReadSource(ctx context.Context, src Source, dataDir string) ([]*model.Record, error) {
	path := src.LocalPath(dataDir)

	var header []string
	var rows [][]string
	var err error

	switch src.Format {
	case "csv":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "ingest: open report for %s", src.Company)
		}
		defer f.Close() //nolint:errcheck

		header, rows, err = fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{
			Delimiter: []rune(src.Delimiter)[0],
			HasHeader: true,
			TrimSpace: true,
		})
	case "xlsx":
		var all [][]string
		all, err = fetcher.ReadXLSX(path, fetcher.XLSXOptions{
			SheetName: src.Sheet,
			SkipRows:  src.SkipRows,
		})
		if err == nil {
			if len(all) == 0 {
				return nil, eris.Errorf("ingest: empty report for %s", src.Company)
			}
			header, rows = all[0], all[1:]
		}
	default:
		return nil, eris.Errorf("ingest: unknown format %q", src.Format)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read report for %s", src.Company)
	}

	return i.ParseRows(src, header, rows)
}

// ParseRows maps raw report rows to records using the source's column
// mapping. Rows without any descriptive content are skipped.
func (i *Ingester) ParseRows(src Source, header []string, rows [][]string) ([]*model.Record, error) {
	idx, err := columnIndex(src, header)
	if err != nil {
		return nil, err
	}

	records := make([]*model.Record, 0, len(rows))
	for n, row := range rows {
		rec, err := i.parseRow(src, idx, row)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: %s row %d", src.Company, n+1)
		}
		if rec == nil {
			continue
		}
		records = append(records, rec)
	}

	zap.L().Info("parsed report",
		zap.String("company", src.Company),
		zap.Int("year", src.Year),
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// columnIndex resolves the source's column mapping against the header,
// matching case-insensitively on trimmed names.
func columnIndex(src Source, header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idx := make(map[string]int, len(src.Columns))
	for field, column := range src.Columns {
		pos, ok := byName[strings.ToLower(strings.TrimSpace(column))]
		if !ok {
			return nil, eris.Errorf("ingest: %s column %q not found in header", src.Company, column)
		}
		idx[field] = pos
	}
	return idx, nil
}

func (i *Ingester) parseRow(src Source, idx map[string]int, row []string) (*model.Record, error) {
	cell := func(field string) string {
		pos, ok := idx[field]
		if !ok || pos >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[pos])
	}

	recType := src.Type
	if recType == "" {
		raw := cell("type")
		mapped, ok := src.TypeMap[raw]
		if !ok {
			i.anomalies.Inc("unknown recipient type " + raw)
			zap.L().Warn("skipping row with unknown recipient type",
				zap.String("company", src.Company),
				zap.String("value", raw),
			)
			return nil, nil
		}
		recType = mapped
	}

	rec := &model.Record{
		Type:     recType,
		Company:  src.Company,
		Origin:   src.Origin,
		Currency: src.Currency,
		Year:     src.Year,
	}

	assign := map[string]**string{
		"name":             &rec.Name,
		"first_name":       &rec.FirstName,
		"last_name":        &rec.LastName,
		"title":            &rec.Title,
		"gender":           &rec.Gender,
		"recipient_detail": &rec.RecipientDetail,
		"address":          &rec.Address,
		"location":         &rec.Location,
		"country":          &rec.Country,
		"postcode":         &rec.Postcode,
	}
	for field, dest := range assign {
		if v := cell(field); v != "" {
			val := v
			*dest = &val
		}
	}

	// A row with no name at all carries nothing to merge on.
	if rec.Name == nil && rec.LastName == nil {
		i.anomalies.Inc("row without name")
		return nil, nil
	}

	amounts := map[string]**float64{
		"donations_grants":     &rec.DonationsGrants,
		"sponsorship":          &rec.Sponsorship,
		"registration_fees":    &rec.RegistrationFees,
		"travel_accommodation": &rec.TravelAccommodation,
		"fees":                 &rec.Fees,
		"related_expenses":     &rec.RelatedExpenses,
	}
	for field, dest := range amounts {
		raw := cell(field)
		if raw == "" {
			continue
		}
		val, err := normalize.Money(raw)
		if err != nil {
			i.anomalies.Inc("unparseable amount")
			zap.L().Warn("unparseable amount",
				zap.String("company", src.Company),
				zap.String("field", field),
				zap.String("value", raw),
			)
			continue
		}
		*dest = val
	}

	if raw := cell("total"); raw != "" {
		rec.TotalDirty = raw
		val, err := normalize.Money(raw)
		if err != nil {
			i.anomalies.Inc("unparseable total")
			zap.L().Warn("unparseable total",
				zap.String("company", src.Company),
				zap.String("value", raw),
			)
		} else {
			rec.Total = val
		}
	}

	return rec, nil
}
