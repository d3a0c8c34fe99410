// Package assemble merges field-split Census API responses into one labelled
// record per geographic unit.
//
// The API limits how many variables a single request may name, so the
// variables of one scope are fetched with several requests over the same
// geography. Each response is a Table; the assembler translates header codes
// through a catalog and folds the tables together, the first table winning
// whenever two columns resolve to the same label.
//
// Two join strategies are available:
//
//   - Merge / MergeAll pair rows by position. Row i of every table is assumed
//     to describe the same unit. Tables of different length are truncated to
//     the shortest one.
//   - MergeByKey pairs rows by the values of identifier columns (for example
//     state, county, tract and block group), which does not depend on the
//     upstream returning rows in the same order for every request.
package assemble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/acs-harvest/pkg/catalog"
)

// ErrMissingKey is returned by MergeByKey when a table lacks a key column.
var ErrMissingKey = errors.New("key column missing")

// GeoColumns are the Census geography identifier columns, outermost first.
var GeoColumns = []string{"state", "county", "tract", "block group"}

// Assembler merges tables using a code catalog.
type Assembler struct {
	catalog *catalog.Catalog
}

// New creates an assembler. A nil catalog passes every header through.
func New(c *catalog.Catalog) *Assembler {
	return &Assembler{catalog: c}
}

// Merge combines two responses for the same scope by row position.
func (a *Assembler) Merge(first, second Table) []*Record {
	return a.MergeAll(first, second)
}

// MergeAll combines any number of responses by row position. Rows past the
// end of the shortest table are dropped.
func (a *Assembler) MergeAll(tables ...Table) []*Record {
	if len(tables) == 0 {
		return nil
	}

	rows := tables[0].Len()
	for _, t := range tables[1:] {
		if t.Len() < rows {
			rows = t.Len()
		}
	}

	labels := a.resolveHeaders(tables)
	width := 0
	for _, l := range labels {
		width += len(l)
	}

	out := make([]*Record, 0, rows)
	for i := 0; i < rows; i++ {
		rec := NewRecord(width)
		for ti, t := range tables {
			fill(rec, labels[ti], t.Row(i), ti == 0)
		}
		out = append(out, rec)
	}
	return out
}

// MergeByKey combines responses by joining rows on the given header columns.
// Only units present in every table are kept, in the first table's order.
// When a key repeats within a table its first row is used.
func (a *Assembler) MergeByKey(keys []string, tables ...Table) ([]*Record, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no key columns given", ErrMissingKey)
	}

	keyIdx := make([][]int, len(tables))
	for ti, t := range tables {
		idx := make([]int, len(keys))
		for k, name := range keys {
			col := t.Column(name)
			if col < 0 {
				return nil, fmt.Errorf("%w: table %d has no %q column", ErrMissingKey, ti, name)
			}
			idx[k] = col
		}
		keyIdx[ti] = idx
	}

	// Row lookup for every table after the first.
	lookups := make([]map[string]int, len(tables))
	for ti := 1; ti < len(tables); ti++ {
		t := tables[ti]
		m := make(map[string]int, t.Len())
		for i := 0; i < t.Len(); i++ {
			k := joinKey(t.Row(i), keyIdx[ti])
			if _, ok := m[k]; !ok {
				m[k] = i
			}
		}
		lookups[ti] = m
	}

	labels := a.resolveHeaders(tables)
	first := tables[0]
	seen := make(map[string]struct{}, first.Len())
	out := make([]*Record, 0, first.Len())

rows:
	for i := 0; i < first.Len(); i++ {
		row := first.Row(i)
		k := joinKey(row, keyIdx[0])
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		matched := make([][]string, len(tables))
		matched[0] = row
		for ti := 1; ti < len(tables); ti++ {
			j, ok := lookups[ti][k]
			if !ok {
				continue rows
			}
			matched[ti] = tables[ti].Row(j)
		}

		rec := NewRecord(len(row) * len(tables))
		for ti := range tables {
			fill(rec, labels[ti], matched[ti], ti == 0)
		}
		out = append(out, rec)
	}

	return out, nil
}

// GeoKeys returns the geography identifier columns present in t's header.
func GeoKeys(t Table) []string {
	var keys []string
	for _, name := range GeoColumns {
		if t.Column(name) >= 0 {
			keys = append(keys, name)
		}
	}
	return keys
}

func (a *Assembler) resolveHeaders(tables []Table) [][]string {
	labels := make([][]string, len(tables))
	for ti, t := range tables {
		header := t.Header()
		l := make([]string, len(header))
		for j, code := range header {
			l[j] = a.catalog.Lookup(code)
		}
		labels[ti] = l
	}
	return labels
}

// fill copies row into rec. The first table overwrites (a repeated label
// within it keeps the last column); later tables only add missing labels.
func fill(rec *Record, labels, row []string, first bool) {
	for j, v := range row {
		if j >= len(labels) {
			break
		}
		if first {
			rec.Set(labels[j], v)
		} else {
			rec.SetIfAbsent(labels[j], v)
		}
	}
}

func joinKey(row []string, idx []int) string {
	parts := make([]string, len(idx))
	for k, col := range idx {
		if col < len(row) {
			parts[k] = row[col]
		}
	}
	return strings.Join(parts, "\x1f")
}
