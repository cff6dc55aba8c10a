package ingest

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/transparencydata/payments-cli/internal/model"
)

// ReadRecordsCSV decodes records from the canonical CSV layout, the
// format the pipeline itself exports. Column names follow the record's
// csv tags; empty cells decode to nil.
func ReadRecordsCSV(r io.Reader) ([]*model.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = ','

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read canonical header")
	}

	var records []*model.Record
	for {
		var rec model.Record
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "ingest: decode canonical row")
		}
		records = append(records, &rec)
	}
	return records, nil
}

// WriteRecordsCSV encodes records in the canonical CSV layout.
func WriteRecordsCSV(w io.Writer, records []*model.Record) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "ingest: encode canonical row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "ingest: write canonical csv")
}
