// Package catalog maps opaque Census API variable codes to readable labels.
package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateCode is returned when a code appears twice in a catalog.
	ErrDuplicateCode = errors.New("duplicate code")

	// ErrDuplicateLabel is returned when two codes share a label.
	ErrDuplicateLabel = errors.New("duplicate label")

	// ErrEmptyEntry is returned for an entry with a blank code or label.
	ErrEmptyEntry = errors.New("empty code or label")
)

// Entry pairs a source variable code with its output label.
type Entry struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
}

// Catalog is an immutable, ordered code -> label mapping.
// The zero value is an empty catalog where every lookup passes through.
type Catalog struct {
	entries []Entry
	byCode  map[string]string
}

// New builds a catalog from entries, preserving their order.
// Codes and labels must both be unique.
func New(entries []Entry) (*Catalog, error) {
	byCode := make(map[string]string, len(entries))
	labels := make(map[string]struct{}, len(entries))

	for i, e := range entries {
		if e.Code == "" || e.Label == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptyEntry)
		}
		if _, ok := byCode[e.Code]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, e.Code)
		}
		if _, ok := labels[e.Label]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, e.Label)
		}
		byCode[e.Code] = e.Label
		labels[e.Label] = struct{}{}
	}

	return &Catalog{
		entries: append([]Entry(nil), entries...),
		byCode:  byCode,
	}, nil
}

// MustNew is like New but panics on invalid entries.
func MustNew(entries []Entry) *Catalog {
	c, err := New(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the label for code, or code itself when it is not catalogued.
func (c *Catalog) Lookup(code string) string {
	if c == nil {
		return code
	}
	if label, ok := c.byCode[code]; ok {
		return label
	}
	return code
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Codes returns all codes in catalog order.
func (c *Catalog) Codes() []string {
	if c == nil {
		return nil
	}
	codes := make([]string, len(c.entries))
	for i, e := range c.entries {
		codes[i] = e.Code
	}
	return codes
}

// Batches splits the codes into consecutive groups of at most size codes.
// The Census API caps the number of variables per request, so each batch
// becomes one query.
func (c *Catalog) Batches(size int) [][]string {
	codes := c.Codes()
	if len(codes) == 0 {
		return nil
	}
	if size <= 0 || size >= len(codes) {
		return [][]string{codes}
	}

	batches := make([][]string, 0, (len(codes)+size-1)/size)
	for start := 0; start < len(codes); start += size {
		end := start + size
		if end > len(codes) {
			end = len(codes)
		}
		batches = append(batches, codes[start:end])
	}
	return batches
}
