// Package dedupe decides which cleaned disclosure records refer to the
// same real-world payee and groups them.
package dedupe

import (
	"math"

	"github.com/transparencydata/payments-cli/internal/model"
	"github.com/transparencydata/payments-cli/internal/similarity"
)

const (
	// earthRadiusKm is the mean Earth radius used for great-circle
	// distance.
	earthRadiusKm = 6371
	degToRad      = math.Pi / 180

	// maxGeoDistanceKm is the proximity gate for the geo-augmented
	// comparator.
	maxGeoDistanceKm = 0.5

	// farAwayKm substitutes for a distance that could not be computed
	// (acos domain error from rounding). It always fails the gate.
	farAwayKm = 10000
)

// Comparator judges whether two cleaned records denote the same
// entity. Organization names are held to a stricter threshold than
// person names since organization name collisions are rarely
// coincidental similarity.
type Comparator struct {
	personThreshold float64
	orgThreshold    float64
	normalizeOrg    func(string) string
}

// ComparatorOption configures a Comparator.
type ComparatorOption func(*Comparator)

// WithPersonThreshold overrides the person-name similarity threshold.
func WithPersonThreshold(t float64) ComparatorOption {
	return func(c *Comparator) { c.personThreshold = t }
}

// WithOrgThreshold overrides the organization-name similarity threshold.
func WithOrgThreshold(t float64) ComparatorOption {
	return func(c *Comparator) { c.orgThreshold = t }
}

// WithOrgNormalizer applies fn to both organization comparison strings
// before matching.
func WithOrgNormalizer(fn func(string) string) ComparatorOption {
	return func(c *Comparator) { c.normalizeOrg = fn }
}

// NewComparator creates a Comparator with the default thresholds.
func NewComparator(opts ...ComparatorOption) *Comparator {
	c := &Comparator{
		personThreshold: 0.9,
		orgThreshold:    0.93,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Match reports whether a and b denote the same entity based on name,
// address, and location agreement. Two records paid by the same
// company are never merged: same-payer collisions are assumed to be
// distinct recipients, pre-deduplicated upstream.
func (c *Comparator) Match(a, b *model.Record) bool {
	return c.match(a, b, false)
}

// GeoMatch is the geo-augmented variant: it requires the two records
// to lie within maxGeoDistanceKm of each other and then delegates to
// the text comparator with the location requirement lifted, since
// proximity already establishes co-location.
func (c *Comparator) GeoMatch(a, b *model.Record) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Lat == nil || a.Lng == nil || b.Lat == nil || b.Lng == nil {
		return false
	}
	if distanceKm(*a.Lat, *a.Lng, *b.Lat, *b.Lng) > maxGeoDistanceKm {
		return false
	}
	return c.match(a, b, true)
}

func (c *Comparator) match(a, b *model.Record, geoident bool) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Company == b.Company {
		return false
	}

	if !c.nameMatch(a, b) {
		return false
	}

	addressMatch := similarity.ContainsEqual(a.Address, b.Address) ||
		similarity.FuzzyEqual(a.Address, b.Address, similarity.DefaultThreshold)
	locationMatch := similarity.ContainsEqual(a.Location, b.Location) ||
		similarity.FuzzyEqual(a.Location, b.Location, similarity.DefaultThreshold)
	hasLocation := a.HasLocation() && b.HasLocation()

	// With no location text to corroborate, byte-identical raw names
	// are accepted as a last-resort safety net for persons only.
	return addressMatch &&
		(geoident || locationMatch ||
			(!hasLocation && a.Type == model.TypePerson && exactName(a, b)))
}

func (c *Comparator) nameMatch(a, b *model.Record) bool {
	if a.Type == model.TypePerson {
		last := similarity.ContainsEqual(a.LastName, b.LastName) ||
			similarity.FuzzyEqual(a.LastName, b.LastName, c.personThreshold)
		if !last {
			return false
		}
		return similarity.ContainsEqual(a.FirstName, b.FirstName) ||
			similarity.FuzzyEqual(a.FirstName, b.FirstName, c.personThreshold)
	}

	an := orgName(a)
	bn := orgName(b)
	if an == nil || bn == nil {
		return false
	}
	if c.normalizeOrg != nil {
		na, nb := c.normalizeOrg(*an), c.normalizeOrg(*bn)
		an, bn = &na, &nb
	}
	return similarity.ContainsEqual(an, bn) ||
		similarity.FuzzyEqual(an, bn, c.orgThreshold)
}

// orgName builds the organization comparison string: the name with the
// recipient detail appended when present. Nil when the name is absent.
func orgName(r *model.Record) *string {
	if r.Name == nil {
		return nil
	}
	s := *r.Name
	if r.RecipientDetail != nil {
		s += " " + *r.RecipientDetail
	}
	return &s
}

// exactName reports byte-identical raw names; absent names never match.
func exactName(a, b *model.Record) bool {
	return a.Name != nil && b.Name != nil && *a.Name == *b.Name
}

// distanceKm computes the great-circle distance between two points
// using the spherical law of cosines. Rounding can push the acos
// argument out of [-1,1]; the resulting NaN is replaced with a
// sentinel that fails the proximity gate.
func distanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	d := math.Acos(math.Sin(lat1*degToRad)*math.Sin(lat2*degToRad)+
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Cos((lng2-lng1)*degToRad)) * earthRadiusKm
	if math.IsNaN(d) {
		return farAwayKm
	}
	return d
}
