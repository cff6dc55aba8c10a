package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transparencydata/payments-cli/internal/model"
)

func str(s string) *string { return &s }

func f64(v float64) *float64 { return &v }

func personRecord(company string) *model.Record {
	return &model.Record{
		Type:      model.TypePerson,
		Company:   company,
		Name:      str("Anna Weber"),
		FirstName: str("Anna"),
		LastName:  str("Weber"),
		Address:   str("Hauptstr. 12"),
		Location:  str("Berlin"),
	}
}

func orgRecord(company string) *model.Record {
	return &model.Record{
		Type:     model.TypeOrganization,
		Company:  company,
		Name:     str("Universitätsklinikum Essen"),
		Address:  str("Hufelandstr. 55"),
		Location: str("Essen"),
	}
}

func TestMatch_DifferentTypesNeverMatch(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := orgRecord("pharma-b")
	assert.False(t, c.Match(a, b))
}

func TestMatch_SameCompanyNeverMerges(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-a")
	// Identical in every other respect.
	assert.False(t, c.Match(a, b))
}

func TestMatch_SelfCopyAcrossCompanies(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	assert.True(t, c.Match(a, b))
}

func TestMatch_Symmetry(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	b.FirstName = str("A.")
	b.Address = str("Hauptstraße 12, Berlin")

	assert.Equal(t, c.Match(a, b), c.Match(b, a))

	b.LastName = str("Webersohn")
	assert.Equal(t, c.Match(a, b), c.Match(b, a))
}

func TestMatch_PersonRequiresBothNameParts(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	b.FirstName = str("Margarete")
	assert.False(t, c.Match(a, b))

	b = personRecord("pharma-b")
	b.LastName = str("Lehmann")
	assert.False(t, c.Match(a, b))
}

func TestMatch_PersonLastNameContainment(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	b.LastName = str("Weber-Schmidt")
	b.Name = str("Anna Weber-Schmidt")
	assert.True(t, c.Match(a, b))
}

func TestMatch_NameMatchAloneInsufficient(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	b.Address = str("Gartenweg 3")
	b.Location = str("München")
	assert.False(t, c.Match(a, b))
}

func TestMatch_MissingAddressFailsClosed(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	a.Address = nil
	assert.False(t, c.Match(a, b))
}

func TestMatch_MissingLocationPersonExactNameFallback(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	a.Location = nil
	b.Location = nil
	assert.True(t, c.Match(a, b))

	// The fallback is byte-exact on the raw name.
	b.Name = str("Anna M. Weber")
	assert.False(t, c.Match(a, b))
}

func TestMatch_MissingLocationOrgNoFallback(t *testing.T) {
	c := NewComparator()
	a := orgRecord("pharma-a")
	b := orgRecord("pharma-b")
	a.Location = nil
	b.Location = nil
	assert.False(t, c.Match(a, b))
}

func TestMatch_EmptyLocationCountsAsAbsent(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	a.Location = str("")
	b.Location = str("")
	// Empty strings contain each other, so locationMatch holds anyway;
	// the point is that the fallback path is also available.
	assert.True(t, c.Match(a, b))
}

func TestMatch_OrgDetailJoinsComparisonString(t *testing.T) {
	c := NewComparator()
	a := orgRecord("pharma-a")
	b := orgRecord("pharma-b")
	a.Name = str("Universitätsklinikum")
	a.RecipientDetail = str("Essen")
	assert.True(t, c.Match(a, b))
}

func TestMatch_OrgNormalizerApplied(t *testing.T) {
	called := 0
	c := NewComparator(WithOrgNormalizer(func(s string) string {
		called++
		return s
	}))
	a := orgRecord("pharma-a")
	b := orgRecord("pharma-b")
	c.Match(a, b)
	assert.Equal(t, 2, called)
}

func TestMatch_OrgMissingNameFailsClosed(t *testing.T) {
	c := NewComparator()
	a := orgRecord("pharma-a")
	b := orgRecord("pharma-b")
	a.Name = nil
	assert.False(t, c.Match(a, b))
}

func TestGeoMatch_WithinHalfKm(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	a.Location = nil
	b.Location = str("Berlin-Mitte") // would not match textually against nil

	// ~0.4 km apart (0.0036° latitude).
	a.Lat, a.Lng = f64(52.5200), f64(13.4050)
	b.Lat, b.Lng = f64(52.5236), f64(13.4050)
	assert.True(t, c.GeoMatch(a, b))
}

func TestGeoMatch_TenKmApart(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	a.Lat, a.Lng = f64(52.5200), f64(13.4050)
	b.Lat, b.Lng = f64(52.6100), f64(13.4050) // ~10 km north
	assert.False(t, c.GeoMatch(a, b))
}

func TestGeoMatch_MissingCoordinates(t *testing.T) {
	c := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	a.Lat, a.Lng = f64(52.5200), f64(13.4050)
	assert.False(t, c.GeoMatch(a, b))
}

func TestDistanceKm_IdenticalPointSafe(t *testing.T) {
	// acos(1 + ε) would be a domain error; identical points must give
	// zero, not the sentinel.
	d := distanceKm(52.52, 13.405, 52.52, 13.405)
	assert.InDelta(t, 0, d, 0.001)
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Berlin to Hamburg, ~255 km.
	d := distanceKm(52.5200, 13.4050, 53.5511, 9.9937)
	assert.InDelta(t, 255, d, 10)
}
