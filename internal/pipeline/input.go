package pipeline

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	errEmptyInput     = errors.New("file is empty")
	errNoSheets       = errors.New("workbook has no sheets")
	errInvalidUTF8    = errors.New("input is not valid UTF-8")
	errMalformedURI   = errors.New("malformed data URI")
	errTooManyColumns = errors.New("row has more fields than the header")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a decoded upload: a header row and the data rows, each padded to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of the named column.
func (t *Table) Index(column string) (int, bool) {
	for i, h := range t.Header {
		if h == column {
			return i, true
		}
	}

	return -1, false
}

// Decode parses raw upload bytes into a Table. Files ending in .xlsx are read as
// workbooks; anything else is comma separated text in the named character encoding.
// An empty encoding means UTF-8.
func Decode(raw []byte, filename, encoding string) (*Table, error) {
	if len(raw) == 0 {
		return nil, &DecodeError{Filename: filename, Err: errEmptyInput}
	}

	var (
		records [][]string
		err     error
	)
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		records, err = readWorkbook(raw)
	} else {
		records, err = readDelimited(raw, encoding)
	}
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: err}
	}

	table, err := toTable(records)
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: err}
	}

	return table, nil
}

// DecodeDataURI extracts the payload of a "data:<mime>;base64,<payload>" string.
// Payloads without the base64 marker are percent-decoded.
func DecodeDataURI(contents string) ([]byte, error) {
	rest, ok := strings.CutPrefix(contents, "data:")
	if !ok {
		return nil, &DecodeError{Err: errMalformedURI}
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, &DecodeError{Err: errMalformedURI}
	}

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("invalid base64 payload: %w", err)}
		}
		return data, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("invalid escaped payload: %w", err)}
	}

	return []byte(text), nil
}

func readDelimited(raw []byte, encoding string) ([][]string, error) {
	text, err := toUTF8(raw, encoding)
	if err != nil {
		return nil, err
	}
	text = bytes.TrimPrefix(text, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

func toUTF8(raw []byte, label string) ([]byte, error) {
	if label == "" {
		label = "utf-8"
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}

	name, _ := htmlindex.Name(enc)
	if name == "utf-8" {
		if !utf8.Valid(raw) {
			return nil, errInvalidUTF8
		}
		return raw, nil
	}

	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	return text, nil
}

func readWorkbook(raw []byte) ([][]string, error) {
	file, err := xlsx.OpenBinary(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, errNoSheets
	}

	sheet := file.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if isBlank(cells) {
			continue
		}
		records = append(records, cells)
	}

	return records, nil
}

func toTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, errEmptyInput
	}

	header := records[0]
	rows := make([][]string, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) > len(header) {
			// Trailing empty cells are common in spreadsheet exports.
			trimmed := trimTrailingEmpty(record, len(header))
			if len(trimmed) > len(header) {
				return nil, fmt.Errorf("line %d: %w", i+2, errTooManyColumns)
			}
			record = trimmed
		}
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}
		rows = append(rows, record)
	}

	return &Table{Header: header, Rows: rows}, nil
}

func trimTrailingEmpty(record []string, floor int) []string {
	end := len(record)
	for end > floor && record[end-1] == "" {
		end--
	}

	return record[:end]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}
