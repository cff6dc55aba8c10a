package model

// Payment is one itemized amount contributed by a record to an entity.
// Label is the amount-category field the value came from.
type Payment struct {
	Company         string  `json:"company"`
	Currency        string  `json:"currency"`
	Type            string  `json:"type"`
	Year            int     `json:"year"`
	RecipientDetail *string `json:"recipient_detail"`
	Label           string  `json:"label"`
	Amount          float64 `json:"amount"`
}

// Entity is the canonical merged representation of all records that
// describe one real-world payee. Descriptive fields hold the best
// value voted across the group; Payments holds every positive
// itemized amount from every grouped record.
type Entity struct {
	GroupID string        `json:"group_id"`
	Type    RecipientType `json:"type"`

	Name            *string `json:"name"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Title           *string `json:"title"`
	Gender          *string `json:"gender"`
	RecipientDetail *string `json:"recipient_detail"`
	Address         *string `json:"address"`
	Location        *string `json:"location"`
	Country         *string `json:"country"`
	Postcode        *string `json:"postcode"`
	Origin          string  `json:"origin"`

	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`

	Payments []Payment `json:"payments"`

	// SlugRaw is derived from name + location (+ origin). Slug is the
	// dataset-unique variant with a numeric suffix on collision.
	SlugRaw string `json:"slug_raw"`
	Slug    string `json:"slug"`
}

// TotalAmount sums all payments attached to the entity.
func (e *Entity) TotalAmount() float64 {
	var sum float64
	for _, p := range e.Payments {
		sum += p.Amount
	}
	return sum
}
