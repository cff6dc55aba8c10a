// Package entity merges finalized record groups into canonical
// entities with voted field values and aggregated payment histories.
package entity

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/transparencydata/payments-cli/internal/model"
)

// highSignalFields are the descriptive text fields whose frequency
// ties are broken by informativeness instead of encounter order. Short
// noisy fragments tend to win frequency ties spuriously on these.
var highSignalFields = map[string]bool{
	"location":   true,
	"address":    true,
	"name":       true,
	"first_name": true,
	"last_name":  true,
}

// nonWord splits a value into tokens the way informativeness counts
// them: on every character that is not a letter, digit, or underscore.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// Builder turns clustered records into entities.
type Builder struct {
	defaultOrigin string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDefaultOrigin sets the origin code that is omitted from slugs.
func WithDefaultOrigin(origin string) BuilderOption {
	return func(b *Builder) { b.defaultOrigin = origin }
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{defaultOrigin: "de"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates one entity per group id, in first-seen group order.
// Records must already carry group ids; records are read, never
// mutated.
func (b *Builder) Build(records []*model.Record) []*model.Entity {
	var order []string
	groups := make(map[string][]*model.Record)
	for _, r := range records {
		if r.GroupID == "" {
			zap.L().Warn("entity: record without group id skipped",
				zap.Int64("record_id", r.ID),
				zap.String("company", r.Company),
			)
			continue
		}
		if _, ok := groups[r.GroupID]; !ok {
			order = append(order, r.GroupID)
		}
		groups[r.GroupID] = append(groups[r.GroupID], r)
	}

	entities := make([]*model.Entity, 0, len(order))
	for _, gid := range order {
		entities = append(entities, b.buildOne(gid, groups[gid]))
	}
	return entities
}

func (b *Builder) buildOne(gid string, rows []*model.Record) *model.Entity {
	e := &model.Entity{
		GroupID: gid,
		Type:    rows[0].Type,
	}

	e.Name = BestValue("name", collect(rows, func(r *model.Record) *string { return r.Name }))
	e.FirstName = BestValue("first_name", collect(rows, func(r *model.Record) *string { return r.FirstName }))
	e.LastName = BestValue("last_name", collect(rows, func(r *model.Record) *string { return r.LastName }))
	e.Title = BestValue("title", collect(rows, func(r *model.Record) *string { return r.Title }))
	e.Gender = BestValue("gender", collect(rows, func(r *model.Record) *string { return r.Gender }))
	e.RecipientDetail = BestValue("recipient_detail", collect(rows, func(r *model.Record) *string { return r.RecipientDetail }))
	e.Address = BestValue("address", collect(rows, func(r *model.Record) *string { return r.Address }))
	e.Location = BestValue("location", collect(rows, func(r *model.Record) *string { return r.Location }))
	e.Country = BestValue("country", collect(rows, func(r *model.Record) *string { return r.Country }))
	e.Postcode = BestValue("postcode", collect(rows, func(r *model.Record) *string { return r.Postcode }))

	origins := make([]*string, len(rows))
	for i, r := range rows {
		o := r.Origin
		origins[i] = &o
	}
	if o := BestValue("origin", origins); o != nil {
		e.Origin = *o
	} else {
		e.Origin = b.defaultOrigin
	}

	// Coordinates are upstream geocoding output, not source text, so
	// voting adds nothing: take the first geocoded pair.
	for _, r := range rows {
		if r.Lat != nil && r.Lng != nil {
			e.Lat, e.Lng = r.Lat, r.Lng
			break
		}
	}

	for _, r := range rows {
		e.Payments = append(e.Payments, meltPayments(r)...)
	}
	return e
}

// collect gathers one field value per record, preserving row order.
func collect(rows []*model.Record, get func(*model.Record) *string) []*string {
	out := make([]*string, len(rows))
	for i, r := range rows {
		out[i] = get(r)
	}
	return out
}

// meltPayments emits one payment per positive itemized amount field.
func meltPayments(r *model.Record) []model.Payment {
	var out []model.Payment
	amounts := r.Amounts()
	for _, label := range model.AmountFields {
		v := amounts[label]
		if v == nil || *v <= 0 {
			continue
		}
		out = append(out, model.Payment{
			Company:         r.Company,
			Currency:        r.Currency,
			Type:            string(r.Type),
			Year:            r.Year,
			RecipientDetail: r.RecipientDetail,
			Label:           label,
			Amount:          *v,
		})
	}
	return out
}

// BestValue selects the representative value for one descriptive
// field across a group. Most frequent value wins; for high-signal
// fields, frequency ties are broken by informativeness. With no
// non-nil values the result is nil.
func BestValue(field string, values []*string) *string {
	counts := make(map[string]int)
	var seen []string
	for _, v := range values {
		if v == nil {
			continue
		}
		if _, ok := counts[*v]; !ok {
			seen = append(seen, *v)
		}
		counts[*v]++
	}
	if len(seen) == 0 {
		return nil
	}
	if len(seen) == 1 {
		return &seen[0]
	}

	best := 0
	for i := 1; i < len(seen); i++ {
		if counts[seen[i]] > counts[seen[best]] {
			best = i
		}
	}
	if !highSignalFields[field] {
		return &seen[best]
	}

	// Among the values tied for highest frequency, the densest string
	// wins.
	top := counts[seen[best]]
	for i := range seen {
		if counts[seen[i]] != top {
			continue
		}
		if usefulness(seen[i]) > usefulness(seen[best]) {
			best = i
		}
	}
	return &seen[best]
}

// usefulness is a crude entropy estimate: character length divided by
// token count. Longer, less fragmented strings score higher.
func usefulness(val string) float64 {
	parts := nonWord.Split(val, -1)
	return float64(len([]rune(val))) / float64(len(parts))
}
