package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/Sternrassler/acs-harvest/pkg/assemble"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetParallelism is the number of goroutines used to marshal row groups.
const parquetParallelism = 4

// WriteParquet writes records as a Parquet file. Each column is an optional
// UTF8 byte array; a column a record lacks is null. Column names are reduced
// to letters, digits and underscores.
func WriteParquet(w io.Writer, records []*assemble.Record) error {
	header, err := Header(records)
	if err != nil {
		return err
	}
	columns := ColumnNames(header)

	pfw := writerfile.NewWriterFile(w)
	pw, err := writer.NewJSONWriter(parquetSchema(columns), pfw, parquetParallelism)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	row := make(map[string]*string, len(header))
	for i, r := range records {
		for j, k := range header {
			if v, ok := r.Get(k); ok {
				row[columns[j]] = &v
			} else {
				row[columns[j]] = nil
			}
		}
		data, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if err := pw.Write(string(data)); err != nil {
			_ = pw.WriteStop()
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return nil
}

func parquetSchema(columns []string) string {
	fields := make([]map[string]string, 0, len(columns))
	for _, c := range columns {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", c),
		})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// ColumnNames maps output labels to Parquet-safe column names, keeping them
// unique. "pop_65+" becomes "pop_65_plus" and "block group" "block_group".
// Names differing only in the case of the first letter count as duplicates.
func ColumnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))

	for i, h := range header {
		var b strings.Builder
		for _, r := range strings.ReplaceAll(h, "+", "_plus") {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				b.WriteRune(r)
			} else {
				b.WriteByte('_')
			}
		}
		name := b.String()
		if name == "" || unicode.IsDigit(rune(name[0])) {
			name = "c_" + name
		}

		// Parquet capitalizes the first letter of every column.
		key := strings.ToUpper(name[:1]) + name[1:]
		if n := seen[key]; n > 0 {
			seen[key] = n + 1
			name += "_" + strconv.Itoa(n+1)
		} else {
			seen[key] = 1
		}
		names[i] = name
	}
	return names
}
