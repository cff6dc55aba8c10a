package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparencydata/payments-cli/internal/model"
)

func TestClean_PersonTitleGenderAndSplit(t *testing.T) {
	n := newTestNormalizer(nil)
	r := &model.Record{
		Type:    model.TypePerson,
		Company: "pharma-a",
		Name:    str("Herr Dr. med. Hans Maier"),
	}
	require.NoError(t, n.Clean(r))

	require.NotNil(t, r.Gender)
	assert.Equal(t, "Herr", *r.Gender)
	require.NotNil(t, r.Title)
	assert.Equal(t, "Dr. med.", *r.Title)
	require.NotNil(t, r.Name)
	assert.Equal(t, "Hans Maier", *r.Name)
	require.NotNil(t, r.FirstName)
	assert.Equal(t, "Hans", *r.FirstName)
	require.NotNil(t, r.LastName)
	assert.Equal(t, "Maier", *r.LastName)
}

func TestClean_PersonCommaNameOrder(t *testing.T) {
	n := newTestNormalizer(nil)
	r := &model.Record{
		Type:    model.TypePerson,
		Company: "pharma-a",
		Name:    str("Weber, Anna"),
	}
	require.NoError(t, n.Clean(r))
	assert.Equal(t, "Anna Weber", *r.Name)
	assert.Equal(t, "Anna", *r.FirstName)
	assert.Equal(t, "Weber", *r.LastName)
}

func TestClean_BadNameOrderCompany(t *testing.T) {
	n := newTestNormalizer(map[string]CompanyConfig{
		"pharma-b": {BadNameOrder: true},
	})
	r := &model.Record{
		Type:    model.TypePerson,
		Company: "pharma-b",
		Name:    str("Weber Anna"),
	}
	require.NoError(t, n.Clean(r))
	assert.Equal(t, "Anna", *r.FirstName)
	assert.Equal(t, "Weber", *r.LastName)
}

func TestClean_LastNameCapitals(t *testing.T) {
	n := newTestNormalizer(map[string]CompanyConfig{
		"pharma-c": {BadNameOrder: true, LastNameCapitals: true},
	})
	r := &model.Record{
		Type:    model.TypePerson,
		Company: "pharma-c",
		Name:    str("WEBER Anna"),
	}
	require.NoError(t, n.Clean(r))
	assert.Equal(t, "Anna", *r.FirstName)
	assert.Equal(t, "Weber", *r.LastName)
}

func TestClean_ExistingFirstNameKept(t *testing.T) {
	n := newTestNormalizer(nil)
	r := &model.Record{
		Type:      model.TypePerson,
		Company:   "pharma-a",
		Name:      str("Anna Weber"),
		FirstName: str("Anna"),
		LastName:  str("Weber"),
	}
	require.NoError(t, n.Clean(r))
	assert.Equal(t, "Anna", *r.FirstName)
}

func TestClean_OrgNameDetailSplit(t *testing.T) {
	n := newTestNormalizer(nil)
	r := &model.Record{
		Type:    model.TypeOrganization,
		Company: "pharma-a",
		Name:    str("Universitätsklinikum Essen - Klinik für Kardiologie"),
	}
	require.NoError(t, n.Clean(r))
	assert.Equal(t, "Universitätsklinikum Essen", *r.Name)
	require.NotNil(t, r.RecipientDetail)
	assert.Equal(t, "Klinik für Kardiologie", *r.RecipientDetail)
}

func TestClean_OrgOrganisedBySwap(t *testing.T) {
	n := newTestNormalizer(nil)
	r := &model.Record{
		Type:    model.TypeOrganization,
		Company: "pharma-a",
		Name:    str("Fortbildung Kardiologie, von: DGK e.V."),
	}
	require.NoError(t, n.Clean(r))
	assert.Equal(t, "DGK e.V.", *r.Name)
	require.NotNil(t, r.RecipientDetail)
	assert.Equal(t, "Fortbildung Kardiologie", *r.RecipientDetail)
}

func TestClean_OrgShortHeadNotSplit(t *testing.T) {
	n := newTestNormalizer(nil)
	r := &model.Record{
		Type:    model.TypeOrganization,
		Company: "pharma-a",
		Name:    str("DGK - Deutsche Gesellschaft für Kardiologie"),
	}
	require.NoError(t, n.Clean(r))
	// Four-character head is too short to stand alone as the name.
	assert.Equal(t, "DGK - Deutsche Gesellschaft für Kardiologie", *r.Name)
	assert.Nil(t, r.RecipientDetail)
}

func TestClean_TypeNeverChanges(t *testing.T) {
	n := newTestNormalizer(nil)
	r := &model.Record{
		Type:    model.TypeOrganization,
		Company: "pharma-a",
		Name:    str("Klinikum Fulda"),
	}
	require.NoError(t, n.Clean(r))
	assert.Equal(t, model.TypeOrganization, r.Type)
}

func TestClean_CountryDefaulted(t *testing.T) {
	n := newTestNormalizer(nil)
	r := &model.Record{Type: model.TypePerson, Company: "pharma-a"}
	require.NoError(t, n.Clean(r))
	require.NotNil(t, r.Country)
	assert.Equal(t, "DE", *r.Country)
	assert.Equal(t, "de", r.Origin)
}

func TestClean_CountryCanonicalized(t *testing.T) {
	assert.Equal(t, "DE", Country(str("Deutschland"), "DE"))
	assert.Equal(t, "AT", Country(str("Österreich"), "DE"))
	assert.Equal(t, "CH", Country(str("Schweiz"), "DE"))
	assert.Equal(t, "US", Country(str("USA"), "DE"))
	assert.Equal(t, "XX", Country(str("xx"), "DE"))
	assert.Equal(t, "DE", Country(nil, "DE"))
}

func TestCleanAll_CollectsFailures(t *testing.T) {
	n := newTestNormalizer(map[string]CompanyConfig{
		"pharma-x": {AddressRule: "trailing_location_parens"},
	})
	records := []*model.Record{
		{Type: model.TypePerson, Company: "pharma-a", Name: str("Anna Weber")},
		{Type: model.TypePerson, Company: "pharma-x", Name: str("Hans Maier"), Address: str("kein Muster")},
	}
	err := n.CleanAll(records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	// The clean record was still processed.
	assert.NotNil(t, records[0].LastName)
}

func TestSpacingArtifactsCounted(t *testing.T) {
	counter := NewAnomalyCounter()
	n := NewNormalizer(&Settings{DefaultCountry: "DE"}, counter)
	r := &model.Record{
		Type:    model.TypePerson,
		Company: "pharma-a",
		Name:    str("Anna Web er"),
	}
	require.NoError(t, n.Clean(r))
	assert.Equal(t, 1, counter.Total())
	assert.Equal(t, []string{"spacing:pharma-a"}, counter.Top(5))

	// Particles are not artifacts.
	counter2 := NewAnomalyCounter()
	n2 := NewNormalizer(&Settings{DefaultCountry: "DE"}, counter2)
	r2 := &model.Record{
		Type:    model.TypeOrganization,
		Company: "pharma-a",
		Name:    str("Gesellschaft für Innere Medizin"),
	}
	require.NoError(t, n2.Clean(r2))
	assert.Equal(t, 0, counter2.Total())
}
