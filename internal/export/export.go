// Package export writes entities and total-check flags as flat CSV
// files for publication.
package export

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/transparencydata/payments-cli/internal/check"
	"github.com/transparencydata/payments-cli/internal/model"
)

// PaymentRow is one published payment: the owning entity's descriptive
// fields flattened next to a single itemized amount. An entity with
// five payments exports as five rows sharing a slug.
type PaymentRow struct {
	Slug            string   `csv:"slug"`
	Type            string   `csv:"type"`
	Name            *string  `csv:"name"`
	FirstName       *string  `csv:"first_name"`
	LastName        *string  `csv:"last_name"`
	Title           *string  `csv:"title"`
	RecipientDetail *string  `csv:"recipient_detail"`
	Address         *string  `csv:"address"`
	Location        *string  `csv:"location"`
	Country         *string  `csv:"country"`
	Postcode        *string  `csv:"postcode"`
	Origin          string   `csv:"origin"`
	Lat             *float64 `csv:"lat"`
	Lng             *float64 `csv:"lng"`
	Company         string   `csv:"company"`
	Year            int      `csv:"year"`
	Label           string   `csv:"label"`
	Amount          float64  `csv:"amount"`
	Currency        string   `csv:"currency"`
	PaymentDetail   *string  `csv:"payment_detail"`
}

// PaymentRows flattens entities into one row per payment.
func PaymentRows(entities []*model.Entity) []PaymentRow {
	var rows []PaymentRow
	for _, e := range entities {
		for _, p := range e.Payments {
			rows = append(rows, PaymentRow{
				Slug:            e.Slug,
				Type:            string(e.Type),
				Name:            e.Name,
				FirstName:       e.FirstName,
				LastName:        e.LastName,
				Title:           e.Title,
				RecipientDetail: e.RecipientDetail,
				Address:         e.Address,
				Location:        e.Location,
				Country:         e.Country,
				Postcode:        e.Postcode,
				Origin:          e.Origin,
				Lat:             e.Lat,
				Lng:             e.Lng,
				Company:         p.Company,
				Year:            p.Year,
				Label:           p.Label,
				Amount:          p.Amount,
				Currency:        p.Currency,
				PaymentDetail:   p.RecipientDetail,
			})
		}
	}
	return rows
}

// WritePayments writes the flattened payment rows for all entities.
func WritePayments(w io.Writer, entities []*model.Entity) error {
	return writeCSV(w, PaymentRows(entities), "export: write payments")
}

// WriteFlags writes total-check flags for manual review.
func WriteFlags(w io.Writer, flags []check.Flag) error {
	return writeCSV(w, flags, "export: write flags")
}

func writeCSV[T any](w io.Writer, rows []T, wrap string) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(rows) == 0 {
		if err := enc.EncodeHeader(new(T)); err != nil {
			return eris.Wrap(err, wrap)
		}
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, wrap)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), wrap)
}
