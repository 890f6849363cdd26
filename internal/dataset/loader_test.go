package dataset

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/qualichat/qc-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const fixtureCSV = ` Part  Name ,Date,Inspected Qty.,Total Rej Qty.
PART-101,2025-01-15,"1,200",30
PART-202,2025-02-03,800,n/a
PART-303,,500,
`

func TestLoadCSV(t *testing.T) {
	loader := NewLoader()

	table, err := loader.Load("register.csv", strings.NewReader(fixtureCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Part Name", "Date", "Inspected Qty.", "Total Rej Qty."}, table.ColumnNames())
	assert.Equal(t, 3, table.Rows())

	inspected, ok := table.Column("Inspected Qty.")
	require.True(t, ok)
	assert.Equal(t, entity.ValueNumber, inspected.Values[0].Kind)
	assert.Equal(t, 1200.0, inspected.Values[0].Num)

	date, ok := table.Column("Date")
	require.True(t, ok)
	assert.Equal(t, entity.ValueDate, date.Values[0].Kind)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), date.Values[0].Time)
	assert.Equal(t, entity.ValueEmpty, date.Values[2].Kind)

	rejected, ok := table.Column("Total Rej Qty.")
	require.True(t, ok)
	assert.Equal(t, entity.ValueString, rejected.Values[1].Kind)
	assert.Equal(t, "n/a", rejected.Values[1].Str)
	assert.Equal(t, entity.ValueEmpty, rejected.Values[2].Kind)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Part Name", "Inspected Qty.", "Total Rej Qty."}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"PART-101", 1200, 30}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"PART-202", 800, 12}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	loader := NewLoader()
	table, err := loader.Load("register.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Rows())
	assert.Equal(t, []string{"PART-101", "PART-202"}, table.DistinctStrings("Part Name"))

	inspected, ok := table.Column("Inspected Qty.")
	require.True(t, ok)
	assert.Equal(t, entity.ValueNumber, inspected.Values[1].Kind)
	assert.Equal(t, 800.0, inspected.Values[1].Num)
}

func TestLoadXLSXNotAWorkbook(t *testing.T) {
	loader := NewLoader()

	_, err := loader.Load("register.xlsx", strings.NewReader("plain text"))
	assert.ErrorIs(t, err, entity.ErrInvalidFile)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	loader := NewLoader()

	_, err := loader.Load("register.pdf", strings.NewReader("whatever"))
	assert.ErrorIs(t, err, entity.ErrInvalidExtension)
}

func TestLoadHeaderOnly(t *testing.T) {
	loader := NewLoader()

	_, err := loader.Load("register.csv", strings.NewReader("Part Name,Date\n"))
	assert.ErrorIs(t, err, entity.ErrEmptyDataset)
}

func TestLoadEmptyFile(t *testing.T) {
	loader := NewLoader()

	_, err := loader.Load("register.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, entity.ErrEmptyDataset)
}

func TestLoadDropsUnnamedAndDuplicateColumns(t *testing.T) {
	csv := "Part Name,,Part Name,Qty\nPART-101,x,PART-999,5\n"

	loader := NewLoader()
	table, err := loader.Load("register.csv", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []string{"Part Name", "Qty"}, table.ColumnNames())

	part, ok := table.Column("Part Name")
	require.True(t, ok)
	assert.Equal(t, "PART-101", part.Values[0].Str)
}

func TestLoadShortRowsPadWithEmpty(t *testing.T) {
	csv := "Part Name,Qty\nPART-101\n"

	loader := NewLoader()
	table, err := loader.Load("register.csv", strings.NewReader(csv))
	require.NoError(t, err)

	qty, ok := table.Column("Qty")
	require.True(t, ok)
	assert.Equal(t, entity.ValueEmpty, qty.Values[0].Kind)
}

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "Part Name", NormalizeColumnName("  Part   Name "))
	assert.Equal(t, "", NormalizeColumnName("   "))
}
