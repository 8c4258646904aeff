// Package ingest loads leads in bulk from spreadsheets.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows. Rows may be shorter than Header.
type Table struct {
	Header []string
	Rows   [][]string
}

var (
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
	zipMagic = []byte("PK\x03\x04")
)

// ErrEmptyTable is returned for input without a header row.
var ErrEmptyTable = errors.New("table has no header row")

// Read sniffs r and parses it as XLSX or CSV.
func Read(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return Table{}, err
	}
	if bytes.Equal(head, zipMagic) {
		return ReadXLSX(br)
	}
	return ReadCSV(br)
}

// ReadCSV parses comma-separated input. A UTF-8 byte order mark, as
// written by spreadsheet exports, is dropped.
func ReadCSV(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records)
}

// ReadXLSX parses the first worksheet of a workbook. Cells are read raw,
// so dates arrive as serial numbers.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrEmptyTable
	}
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (Table, error) {
	if len(records) == 0 {
		return Table{}, ErrEmptyTable
	}
	t := Table{Header: records[0]}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
