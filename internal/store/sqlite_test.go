package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparencydata/payments-cli/internal/check"
	"github.com/transparencydata/payments-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }

func sampleRecord() *model.Record {
	return &model.Record{
		Type:     model.TypePerson,
		Company:  "Pharma AG",
		Origin:   "de",
		Currency: "EUR",
		Year:     2023,
		Name:     strPtr("Dr. Anna Weber"),
		LastName: strPtr("Weber"),
		Location: strPtr("Berlin"),
		Fees:     f64Ptr(250.0),
		Total:    f64Ptr(250.0),
	}
}

func TestSQLite_ImportAndListRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []*model.Record{sampleRecord(), sampleRecord()}
	records[1].Company = "Medica GmbH"
	records[1].Year = 2024

	n, err := s.ImportRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NotZero(t, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)

	all, err := s.ListRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Dr. Anna Weber", *all[0].Name)
	assert.Nil(t, all[0].FirstName)
	assert.Equal(t, 250.0, *all[0].Fees)

	byCompany, err := s.ListRecords(ctx, RecordFilter{Company: "Medica GmbH"})
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, 2024, byCompany[0].Year)

	byYear, err := s.ListRecords(ctx, RecordFilter{Year: 2023})
	require.NoError(t, err)
	assert.Len(t, byYear, 1)
}

func TestSQLite_UpdateRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord()
	_, err := s.ImportRecords(ctx, []*model.Record{rec})
	require.NoError(t, err)

	rec.FirstName = strPtr("Anna")
	rec.Lat = f64Ptr(52.52)
	rec.Lng = f64Ptr(13.405)
	require.NoError(t, s.UpdateRecords(ctx, []*model.Record{rec}))

	all, err := s.ListRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Anna", *all[0].FirstName)
	assert.InDelta(t, 52.52, *all[0].Lat, 0.0001)
}

func TestSQLite_UpdateRecords_Missing(t *testing.T) {
	s := newTestStore(t)

	rec := sampleRecord()
	rec.ID = 999
	err := s.UpdateRecords(context.Background(), []*model.Record{rec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateGroupIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []*model.Record{sampleRecord(), sampleRecord(), sampleRecord()}
	_, err := s.ImportRecords(ctx, records)
	require.NoError(t, err)

	groups := map[int64]string{
		records[0].ID: "group-a",
		records[1].ID: "group-a",
		records[2].ID: "group-b",
	}
	require.NoError(t, s.UpdateGroupIDs(ctx, groups))

	all, err := s.ListRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	byID := map[int64]string{}
	for _, r := range all {
		byID[r.ID] = r.GroupID
	}
	assert.Equal(t, "group-a", byID[records[0].ID])
	assert.Equal(t, "group-a", byID[records[1].ID])
	assert.Equal(t, "group-b", byID[records[2].ID])
}

func TestSQLite_EntitiesRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entities := []*model.Entity{
		{
			GroupID:  "group-a",
			Type:     model.TypePerson,
			Name:     strPtr("Dr. Anna Weber"),
			Location: strPtr("Berlin"),
			Origin:   "de",
			Payments: []model.Payment{
				{Company: "Pharma AG", Currency: "EUR", Type: "person", Year: 2023, Label: "fees", Amount: 250.0},
			},
			SlugRaw: "anna-weber-berlin",
			Slug:    "anna-weber-berlin",
		},
		{
			GroupID:  "group-b",
			Type:     model.TypeOrganization,
			Name:     strPtr("Klinikum Nord"),
			Origin:   "de",
			Payments: []model.Payment{},
			SlugRaw:  "klinikum-nord",
			Slug:     "klinikum-nord",
		},
	}
	require.NoError(t, s.ReplaceEntities(ctx, entities))

	all, err := s.ListEntities(ctx, EntityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	persons, err := s.ListEntities(ctx, EntityFilter{Type: model.TypePerson})
	require.NoError(t, err)
	require.Len(t, persons, 1)
	require.Len(t, persons[0].Payments, 1)
	assert.Equal(t, 250.0, persons[0].Payments[0].Amount)

	got, err := s.GetEntityBySlug(ctx, "klinikum-nord")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Klinikum Nord", *got.Name)

	missing, err := s.GetEntityBySlug(ctx, "no-such-slug")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Replace clears previous entities.
	require.NoError(t, s.ReplaceEntities(ctx, entities[:1]))
	all, err = s.ListEntities(ctx, EntityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_FlagsRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	flags := []check.Flag{
		{RecordID: 1, Company: "Pharma AG", Name: "Dr. Anna Weber", Address: "Hauptstr. 5", Declared: 100, Dirty: "100,00", Computed: 105},
	}
	require.NoError(t, s.ReplaceFlags(ctx, flags))

	got, err := s.ListFlags(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, flags[0], got[0])
}
