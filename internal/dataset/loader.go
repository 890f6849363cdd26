package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/qualichat/qc-backend/internal/entity"
	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order when sniffing cell values. GetRows
// returns formatted strings, so uploaded workbooks surface dates in a
// handful of shapes depending on the source application.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"1/2/2006",
	"01/02/2006",
	"02-Jan-06",
	"2-Jan-2006",
	time.RFC3339,
}

// Loader parses uploaded spreadsheet files into immutable tables.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the named file into a Table. The format is chosen by
// extension: .xlsx, .xls or .csv. The first row is the header.
func (l *Loader) Load(filename string, r io.Reader) (*entity.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readXLSX(raw)
	case ".xls":
		rows, err = readXLS(raw)
	case ".csv":
		rows, err = readCSV(raw)
	default:
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidExtension, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	return buildTable(rows)
}

func readXLSX(raw []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %v", entity.ErrInvalidFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", entity.ErrInvalidFile)
	}

	// Only the first sheet is loaded; QC reject registers keep one
	// sheet per workbook.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", entity.ErrInvalidFile, sheets[0], err)
	}
	return rows, nil
}

func readXLS(raw []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: open xls: %v", entity.ErrInvalidFile, err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: workbook has no sheets", entity.ErrInvalidFile)
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(raw []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", entity.ErrInvalidFile, err)
	}
	return rows, nil
}

// buildTable turns raw header+data rows into a typed Table. Column
// names are normalized, unnamed columns are dropped, and every cell
// is sniffed into string, number or date.
func buildTable(rows [][]string) (*entity.Table, error) {
	if len(rows) == 0 {
		return nil, entity.ErrEmptyDataset
	}

	header := rows[0]
	dataRows := rows[1:]
	if len(dataRows) == 0 {
		return nil, entity.ErrEmptyDataset
	}

	type colDef struct {
		name string
		src  int
	}
	var defs []colDef
	seen := make(map[string]struct{})
	for i, name := range header {
		name = NormalizeColumnName(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		defs = append(defs, colDef{name: name, src: i})
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: header row has no named columns", entity.ErrInvalidFile)
	}

	columns := make([]entity.Column, len(defs))
	for c, def := range defs {
		values := make([]entity.Value, len(dataRows))
		for r, row := range dataRows {
			var cell string
			if def.src < len(row) {
				cell = row[def.src]
			}
			values[r] = sniffValue(cell)
		}
		columns[c] = entity.Column{Name: def.name, Values: values}
	}

	return entity.NewTable(columns)
}

// NormalizeColumnName trims surrounding whitespace and collapses
// internal whitespace runs to single spaces.
func NormalizeColumnName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func sniffValue(cell string) entity.Value {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return entity.Value{Kind: entity.ValueEmpty}
	}

	numeric := strings.ReplaceAll(cell, ",", "")
	if n, err := strconv.ParseFloat(numeric, 64); err == nil {
		return entity.NumberValue(n)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return entity.DateValue(t)
		}
	}

	return entity.StringValue(cell)
}
