package store

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/transparencydata/payments-cli/internal/model"
)

// recordColumns lists record columns in insert order, excluding id.
var recordColumns = []string{
	"type", "company", "origin", "currency", "year",
	"name", "first_name", "last_name", "title", "gender",
	"recipient_detail", "address", "location", "country", "postcode",
	"lat", "lng",
	"donations_grants", "sponsorship", "registration_fees",
	"travel_accommodation", "fees", "related_expenses",
	"total", "total_dirty", "group_id",
}

// recordArgs returns the record's values in recordColumns order.
func recordArgs(r *model.Record) []any {
	return []any{
		string(r.Type), r.Company, r.Origin, r.Currency, r.Year,
		r.Name, r.FirstName, r.LastName, r.Title, r.Gender,
		r.RecipientDetail, r.Address, r.Location, r.Country, r.Postcode,
		r.Lat, r.Lng,
		r.DonationsGrants, r.Sponsorship, r.RegistrationFees,
		r.TravelAccommodation, r.Fees, r.RelatedExpenses,
		r.Total, r.TotalDirty, r.GroupID,
	}
}

// recordDests returns scan destinations for id plus recordColumns.
func recordDests(r *model.Record) []any {
	return []any{
		&r.ID,
		&r.Type, &r.Company, &r.Origin, &r.Currency, &r.Year,
		&r.Name, &r.FirstName, &r.LastName, &r.Title, &r.Gender,
		&r.RecipientDetail, &r.Address, &r.Location, &r.Country, &r.Postcode,
		&r.Lat, &r.Lng,
		&r.DonationsGrants, &r.Sponsorship, &r.RegistrationFees,
		&r.TravelAccommodation, &r.Fees, &r.RelatedExpenses,
		&r.Total, &r.TotalDirty, &r.GroupID,
	}
}

// entityColumns lists entity columns in insert order.
var entityColumns = []string{
	"group_id", "type",
	"name", "first_name", "last_name", "title", "gender",
	"recipient_detail", "address", "location", "country", "postcode",
	"origin", "lat", "lng", "payments", "slug_raw", "slug",
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

// isNoRows matches the no-rows sentinel of either driver.
func isNoRows(err error) bool {
	return eris.Is(err, sql.ErrNoRows) || eris.Is(err, pgx.ErrNoRows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntity(row scannable) (*model.Entity, error) {
	var e model.Entity
	var paymentsJSON string

	err := row.Scan(
		&e.GroupID, &e.Type,
		&e.Name, &e.FirstName, &e.LastName, &e.Title, &e.Gender,
		&e.RecipientDetail, &e.Address, &e.Location, &e.Country, &e.Postcode,
		&e.Origin, &e.Lat, &e.Lng, &paymentsJSON, &e.SlugRaw, &e.Slug,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, eris.Wrap(err, "store: scan entity")
	}

	if err := json.Unmarshal([]byte(paymentsJSON), &e.Payments); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal payments")
	}
	return &e, nil
}
