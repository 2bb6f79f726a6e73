package rental

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// The persisted form is CSV in UTF-8 with a leading byte order mark. The
// BOM is what makes spreadsheet tools pick UTF-8 without asking, so CJK
// names survive a round trip through them.

// WriteCSV writes t as BOM-prefixed UTF-8 CSV.
func WriteCSV(w io.Writer, t Table) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		padded := row
		if len(padded) < len(t.Header) {
			padded = append(append([]string(nil), row...), make([]string, len(t.Header)-len(row))...)
		}
		if err := cw.Write(padded); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return tw.Close()
}

// MarshalCSV returns the bytes WriteCSV would write.
func MarshalCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadCSV parses CSV with or without a byte order mark. UTF-16 input with a
// BOM is transcoded. An empty input yields a Table with no header.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}

	t := Table{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// UnmarshalCSV parses data like ReadCSV but rejects input that is neither
// UTF-16 with a BOM nor valid UTF-8.
func UnmarshalCSV(data []byte) (Table, error) {
	if !hasUTF16BOM(data) && !utf8.Valid(data) {
		return Table{}, errors.New("content is not UTF-8 text")
	}
	return ReadCSV(bytes.NewReader(data))
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}
