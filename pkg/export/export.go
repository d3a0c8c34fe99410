// Package export writes assembled records to a single tabular file.
//
// Two formats are supported: CSV encoded as UTF-8 with a byte order mark and
// Parquet with one optional UTF8 column per field. In both, the columns are
// the key set of the first record in its insertion order.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/acs-harvest/pkg/assemble"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for file export.
var (
	acsExportRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acs_export_records_total",
		Help: "Total records written by format",
	}, []string{"format"})

	acsExportBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "acs_export_bytes",
		Help: "Size of the last written file by format",
	}, []string{"format"})
)

var (
	// ErrNoRecords is returned when there is nothing to write; the header is
	// taken from the first record.
	ErrNoRecords = errors.New("no records to write")

	// ErrExtraField is returned when a record has a field missing from the
	// header.
	ErrExtraField = errors.New("record field not in header")
)

// Format is an output file format.
type Format string

const (
	// FormatCSV is UTF-8 CSV with a byte order mark.
	FormatCSV Format = "csv"

	// FormatParquet is a SNAPPY compressed Parquet file.
	FormatParquet Format = "parquet"
)

// ParseFormat converts s to a Format. Empty selects FormatCSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want %q or %q)", s, FormatCSV, FormatParquet)
	}
}

// Header returns the output columns: the keys of the first record. Every
// later record may omit columns but must not add any.
func Header(records []*assemble.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	header := records[0].Keys()
	known := make(map[string]struct{}, len(header))
	for _, k := range header {
		known[k] = struct{}{}
	}

	for i, r := range records[1:] {
		for _, k := range r.Keys() {
			if _, ok := known[k]; !ok {
				return nil, fmt.Errorf("%w: record %d has %q", ErrExtraField, i+1, k)
			}
		}
	}
	return header, nil
}

// Write encodes records to w in format.
func Write(w io.Writer, format Format, records []*assemble.Record) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatParquet:
		return WriteParquet(w, records)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteFile writes records to path, creating parent directories. The file is
// written to a temporary name and renamed into place, so a failed write
// leaves no partial output behind.
func WriteFile(path string, format Format, records []*assemble.Record) error {
	start := time.Now()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, format, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}

	info, err := os.Stat(path)
	if err == nil {
		acsExportBytes.WithLabelValues(string(format)).Set(float64(info.Size()))
	}
	acsExportRecordsTotal.WithLabelValues(string(format)).Add(float64(len(records)))

	log.Info().
		Str("path", path).
		Str("format", string(format)).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Output written")

	return nil
}
