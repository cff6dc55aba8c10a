// Package model defines the records, entities, and payments that flow
// through the disclosure cleaning and deduplication pipeline.
package model

// RecipientType classifies who received a transfer of value.
type RecipientType string

const (
	// TypePerson is an individual healthcare professional.
	TypePerson RecipientType = "person"
	// TypeOrganization is a healthcare organization (clinic, society, ...).
	TypeOrganization RecipientType = "organization"
)

// Record is one disclosed transfer of value from a company to a
// recipient, as published in a single reporting period. Descriptive
// fields are pointers: nil means the source report did not carry the
// field, which the comparators treat as a failed sub-check.
type Record struct {
	ID      int64         `json:"id" csv:"id"`
	Type    RecipientType `json:"type" csv:"type"`
	Company string        `json:"company" csv:"company"`

	// Origin is the reporting country code of the disclosure, Currency
	// its reporting currency, Year the reporting period.
	Origin   string `json:"origin" csv:"origin"`
	Currency string `json:"currency" csv:"currency"`
	Year     int    `json:"year" csv:"year"`

	Name            *string `json:"name" csv:"name"`
	FirstName       *string `json:"first_name" csv:"first_name"`
	LastName        *string `json:"last_name" csv:"last_name"`
	Title           *string `json:"title" csv:"title"`
	Gender          *string `json:"gender" csv:"gender"`
	RecipientDetail *string `json:"recipient_detail" csv:"recipient_detail"`
	Address         *string `json:"address" csv:"address"`
	Location        *string `json:"location" csv:"location"`
	Country         *string `json:"country" csv:"country"`
	Postcode        *string `json:"postcode" csv:"postcode"`

	Lat *float64 `json:"lat" csv:"lat"`
	Lng *float64 `json:"lng" csv:"lng"`

	DonationsGrants     *float64 `json:"donations_grants" csv:"donations_grants"`
	Sponsorship         *float64 `json:"sponsorship" csv:"sponsorship"`
	RegistrationFees    *float64 `json:"registration_fees" csv:"registration_fees"`
	TravelAccommodation *float64 `json:"travel_accommodation" csv:"travel_accommodation"`
	Fees                *float64 `json:"fees" csv:"fees"`
	RelatedExpenses     *float64 `json:"related_expenses" csv:"related_expenses"`

	// Total is the declared sum as published. TotalDirty preserves the
	// raw string before money normalization for auditing.
	Total      *float64 `json:"total" csv:"total"`
	TotalDirty string   `json:"total_dirty" csv:"total_dirty"`

	// GroupID is assigned by the clustering engine. Records sharing a
	// GroupID are considered the same real-world entity.
	GroupID string `json:"group_id" csv:"group_id"`
}

// AmountFields lists the itemized amount categories in report order.
// The declared total is deliberately not part of this list.
var AmountFields = []string{
	"donations_grants",
	"sponsorship",
	"registration_fees",
	"travel_accommodation",
	"fees",
	"related_expenses",
}

// Amounts returns the itemized amount fields keyed by their category
// label. Pointers alias the record's fields.
func (r *Record) Amounts() map[string]*float64 {
	return map[string]*float64{
		"donations_grants":     r.DonationsGrants,
		"sponsorship":          r.Sponsorship,
		"registration_fees":    r.RegistrationFees,
		"travel_accommodation": r.TravelAccommodation,
		"fees":                 r.Fees,
		"related_expenses":     r.RelatedExpenses,
	}
}

// ComputedTotal sums the itemized amount fields, skipping nil values.
func (r *Record) ComputedTotal() float64 {
	var sum float64
	for _, label := range AmountFields {
		if v := r.Amounts()[label]; v != nil {
			sum += *v
		}
	}
	return sum
}

// HasLocation reports whether the record carries a non-empty location.
func (r *Record) HasLocation() bool {
	return r.Location != nil && *r.Location != ""
}
