package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(v string) *string { return &v }

func named(key int64, ordinal int64, name string) Row {
	return Row{Key: key, Value: str(name), Order: OrderKey{Number: ordinal}}
}

func TestJoinKeepsArrivalOrder(t *testing.T) {
	agg := New(", ", nil)
	rows := []Row{named(1, 0, "c1"), named(1, 1, "c2"), named(1, 2, "c3")}
	assert.Equal(t, "c1, c2, c3", agg.Join(rows))
}

func TestJoinOrderedByText(t *testing.T) {
	agg := New(", ", nil)
	rows := []Row{
		{Key: 1, Value: str("Warehouses"), Order: OrderKey{Text: "Warehouses"}},
		{Key: 1, Value: str("Rockets"), Order: OrderKey{Text: "Rockets"}},
		{Key: 1, Value: str("Airplanes"), Order: OrderKey{Text: "Airplanes"}},
	}
	assert.Equal(t, "Airplanes, Rockets, Warehouses", agg.JoinOrdered(rows))
	// input untouched
	assert.Equal(t, "Warehouses", *rows[0].Value)
}

func TestJoinOrderedIsStableForEqualKeys(t *testing.T) {
	agg := New("|", nil)
	rows := []Row{
		{Key: 1, Value: str("b"), Order: OrderKey{Text: "x"}},
		{Key: 1, Value: str("a"), Order: OrderKey{Text: "x"}},
		{Key: 1, Value: str("c"), Order: OrderKey{Text: "w"}},
	}
	assert.Equal(t, "c|b|a", agg.JoinOrdered(rows))
}

func TestGroupEmptyAndMissingRows(t *testing.T) {
	agg := New(", ", nil)
	rows := []Row{
		{Key: 7},
		named(3, 1, "Gyms"),
		named(3, 0, "Xeroxes"),
		{Key: 9},
	}

	groups := agg.Group(rows, true)
	require.Len(t, groups, 3)
	assert.Equal(t, Group{Key: 7, Value: "", Count: 0}, groups[0])
	assert.Equal(t, Group{Key: 3, Value: "Xeroxes, Gyms", Count: 2}, groups[1])
	assert.Equal(t, Group{Key: 9, Value: "", Count: 0}, groups[2])

	unordered := agg.Group(rows, false)
	assert.Equal(t, "Gyms, Xeroxes", unordered[1].Value)
}

func TestCollatorByteOrder(t *testing.T) {
	c, err := NewCollator("")
	require.NoError(t, err)
	assert.Equal(t, "", c.Locale())
	assert.Equal(t, -1, c.Compare("Zebra", "apple"))
	assert.Equal(t, 0, c.Compare("same", "same"))
}

func TestCollatorLocaleAware(t *testing.T) {
	c, err := NewCollator("en")
	require.NoError(t, err)
	assert.Equal(t, "en", c.Locale())
	assert.Equal(t, -1, c.Compare("apple", "Zebra"))
	assert.Equal(t, 1, c.Compare("Airplanes, Rockets", "Airplanes, Gyms"))
}

func TestCollatorRejectsInvalidLocale(t *testing.T) {
	_, err := NewCollator("not a locale!")
	require.Error(t, err)
}

func TestJoinOrderedWithLocale(t *testing.T) {
	c, err := NewCollator("en")
	require.NoError(t, err)
	agg := New(", ", c)
	rows := []Row{
		{Key: 1, Value: str("zoology"), Order: OrderKey{Text: "zoology"}},
		{Key: 1, Value: str("Biology"), Order: OrderKey{Text: "Biology"}},
		{Key: 1, Value: str("art"), Order: OrderKey{Text: "art"}},
	}
	assert.Equal(t, "art, Biology, zoology", agg.JoinOrdered(rows))

	byteAgg := New(", ", nil)
	assert.Equal(t, "Biology, art, zoology", byteAgg.JoinOrdered(rows))
}
