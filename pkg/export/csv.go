package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Sternrassler/acs-harvest/pkg/assemble"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// WriteCSV writes records as CSV with a UTF-8 byte order mark. Rows end in
// CRLF. Columns a record lacks are written empty.
func WriteCSV(w io.Writer, records []*assemble.Record) error {
	header, err := Header(records)
	if err != nil {
		return err
	}

	bom := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bom)
	cw.UseCRLF = true

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for i, r := range records {
		for j, k := range header {
			row[j], _ = r.Get(k)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := bom.Close(); err != nil {
		return fmt.Errorf("flush encoder: %w", err)
	}
	return nil
}
