// Package aggregate joins grouped string values in process. It backs the
// dialects that cannot order a string aggregate in the store.
package aggregate

import (
	"cmp"
	"slices"
	"strings"
)

// OrderKey is the per-row ordering value. Text is compared first using the
// aggregator's collator, Number breaks ties.
type OrderKey struct {
	Text   string
	Number int64
}

// Row is one joined row feeding a group. A nil Value marks an outer join
// miss: the group exists but the row contributes nothing.
type Row struct {
	Key   int64
	Value *string
	Order OrderKey
}

// Group is the joined result for a key.
type Group struct {
	Key   int64
	Value string
	Count int
}

// Aggregator joins values with a fixed delimiter.
type Aggregator struct {
	Delimiter string
	Collator  *Collator
}

// New returns an Aggregator; a nil collator compares bytes.
func New(delimiter string, collator *Collator) Aggregator {
	if collator == nil {
		collator = ByteOrder()
	}
	return Aggregator{Delimiter: delimiter, Collator: collator}
}

// Join joins rows in arrival order.
func (a Aggregator) Join(rows []Row) string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Value != nil {
			values = append(values, *row.Value)
		}
	}
	return strings.Join(values, a.Delimiter)
}

// JoinOrdered joins rows ordered ascending by their OrderKey. Equal keys keep
// arrival order.
func (a Aggregator) JoinOrdered(rows []Row) string {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(x, y Row) int {
		return a.compareKeys(x.Order, y.Order)
	})
	return a.Join(sorted)
}

// Group partitions rows by key, preserving the order in which keys first
// appear, and joins each partition. When ordered is false values keep
// arrival order.
func (a Aggregator) Group(rows []Row, ordered bool) []Group {
	index := make(map[int64]int)
	var keys []int64
	parts := make(map[int64][]Row)
	for _, row := range rows {
		if _, seen := index[row.Key]; !seen {
			index[row.Key] = len(keys)
			keys = append(keys, row.Key)
		}
		parts[row.Key] = append(parts[row.Key], row)
	}

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		part := parts[key]
		g := Group{Key: key}
		for _, row := range part {
			if row.Value != nil {
				g.Count++
			}
		}
		if ordered {
			g.Value = a.JoinOrdered(part)
		} else {
			g.Value = a.Join(part)
		}
		groups = append(groups, g)
	}
	return groups
}

func (a Aggregator) compareKeys(x, y OrderKey) int {
	collator := a.Collator
	if collator == nil {
		collator = ByteOrder()
	}
	if c := collator.Compare(x.Text, y.Text); c != 0 {
		return c
	}
	return cmp.Compare(x.Number, y.Number)
}
