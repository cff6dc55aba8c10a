package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparencydata/payments-cli/internal/model"
)

// chainRecords builds three person records where a~b and b~c hold but
// a~c fails: the middle record's first name contains both variants.
func chainRecords() (a, b, c *model.Record) {
	a = personRecord("pharma-a")
	a.FirstName = str("Anna")
	b = personRecord("pharma-b")
	b.FirstName = str("Anna Margarete")
	c = personRecord("pharma-c")
	c.FirstName = str("Margarete")
	return a, b, c
}

func TestCluster_ChainedUnion(t *testing.T) {
	cmp := NewComparator()
	a, b, c := chainRecords()

	require.True(t, cmp.Match(a, b))
	require.True(t, cmp.Match(b, c))
	require.False(t, cmp.Match(a, c))

	records := []*model.Record{a, b, c}
	NewClusterer(cmp).Run(records)

	assert.NotEmpty(t, a.GroupID)
	assert.Equal(t, a.GroupID, b.GroupID)
	assert.Equal(t, b.GroupID, c.GroupID)
}

func TestCluster_OrderIndependent(t *testing.T) {
	cmp := NewComparator()

	build := func(order []int) map[string]string {
		a, b, c := chainRecords()
		d := personRecord("pharma-d")
		d.LastName = str("Unrelated")
		d.Name = str("Karl Unrelated")
		d.FirstName = str("Karl")
		all := []*model.Record{a, b, c, d}

		records := make([]*model.Record, len(order))
		for i, idx := range order {
			records[i] = all[idx]
		}
		NewClusterer(cmp, WithWorkers(1)).Run(records)

		groups := make(map[string]string)
		for _, r := range records {
			groups[r.Company] = r.GroupID
		}
		return groups
	}

	for _, order := range [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}} {
		groups := build(order)
		assert.Equal(t, groups["pharma-a"], groups["pharma-b"], "order %v", order)
		assert.Equal(t, groups["pharma-b"], groups["pharma-c"], "order %v", order)
		assert.NotEqual(t, groups["pharma-a"], groups["pharma-d"], "order %v", order)
	}
}

func TestCluster_ParallelMatchesSerial(t *testing.T) {
	cmp := NewComparator()

	run := func(workers int) [][]string {
		a, b, c := chainRecords()
		d := orgRecord("pharma-a")
		e := orgRecord("pharma-b")
		records := []*model.Record{a, b, c, d, e}
		NewClusterer(cmp, WithWorkers(workers)).Run(records)

		byGroup := make(map[string][]string)
		for _, r := range records {
			byGroup[r.GroupID] = append(byGroup[r.GroupID], r.Company+string(r.Type))
		}
		var out [][]string
		for _, members := range byGroup {
			out = append(out, members)
		}
		return out
	}

	serial := run(1)
	parallel := run(8)
	assert.ElementsMatch(t, serial, parallel)
}

func TestCluster_SingletonsGetDistinctGroups(t *testing.T) {
	cmp := NewComparator()
	a := personRecord("pharma-a")
	b := personRecord("pharma-b")
	b.LastName = str("Brandt")
	b.Name = str("Anna Brandt")
	records := []*model.Record{a, b}
	NewClusterer(cmp).Run(records)

	assert.NotEmpty(t, a.GroupID)
	assert.NotEmpty(t, b.GroupID)
	assert.NotEqual(t, a.GroupID, b.GroupID)
}

func TestCluster_GeoPassUnitesAcrossPasses(t *testing.T) {
	cmp := NewComparator()

	// a and b only match textually; b and c only match geographically
	// (no location text on either side and differing raw names block
	// the exact-name fallback).
	a, b, _ := chainRecords()
	c := personRecord("pharma-c")
	c.Name = str("A. Weber")
	c.Location = nil
	b.Location = nil
	b.Lat, b.Lng = f64(52.5200), f64(13.4050)
	c.Lat, c.Lng = f64(52.5210), f64(13.4050)

	require.False(t, cmp.Match(b, c))
	require.True(t, cmp.GeoMatch(b, c))

	records := []*model.Record{a, b, c}

	NewClusterer(cmp).Run(records)
	assert.NotEqual(t, b.GroupID, c.GroupID, "text-only pass must not unite b and c")

	NewClusterer(cmp, WithGeoPass(true)).Run(records)
	assert.Equal(t, a.GroupID, b.GroupID)
	assert.Equal(t, b.GroupID, c.GroupID)
}
