package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualichat/qc-backend/internal/entity"
)

func testMapping() entity.ColumnMapping {
	return entity.ColumnMapping{
		Identifier: "Part Name",
		Date:       "Date",
		Inspected:  "Inspected Qty.",
		Rejected:   "Total Rej Qty.",
		Defects:    []string{"Burr", "Damage"},
	}
}

func date(y int, m time.Month, d int) entity.Value {
	return entity.DateValue(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Three inspection rows, two defect columns:
//
//	Burr:   5 + 0 + 3 = 8
//	Damage: 1 + 1 + 1 = 3
func testTable(t *testing.T) *entity.Table {
	t.Helper()
	table, err := entity.NewTable([]entity.Column{
		{Name: "Part Name", Values: []entity.Value{
			entity.StringValue("PART-101"),
			entity.StringValue("PART-101"),
			entity.StringValue("PART-202"),
		}},
		{Name: "Date", Values: []entity.Value{
			date(2025, time.January, 10),
			date(2025, time.January, 20),
			date(2025, time.March, 5),
		}},
		{Name: "Inspected Qty.", Values: []entity.Value{
			entity.NumberValue(100),
			entity.NumberValue(200),
			entity.NumberValue(100),
		}},
		{Name: "Total Rej Qty.", Values: []entity.Value{
			entity.NumberValue(6),
			entity.NumberValue(1),
			entity.NumberValue(4),
		}},
		{Name: "Burr", Values: []entity.Value{
			entity.NumberValue(5),
			entity.NumberValue(0),
			entity.NumberValue(3),
		}},
		{Name: "Damage", Values: []entity.Value{
			entity.NumberValue(1),
			entity.NumberValue(1),
			entity.NumberValue(1),
		}},
	})
	require.NoError(t, err)
	return table
}

func TestRankTopN(t *testing.T) {
	engine := NewEngine()

	result, err := engine.Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag:   entity.IntentRankTopN,
		Count: entity.DefaultTopN,
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "Burr", result.Entries[0].Label)
	assert.Equal(t, 8.0, result.Entries[0].Value)
	assert.InDelta(t, 72.7, result.Entries[0].Percent, 0.1)
	assert.Equal(t, "Damage", result.Entries[1].Label)
	assert.Equal(t, 11.0, result.Total)
	assert.False(t, result.Truncated)
	assert.False(t, result.ZeroDenominator)
}

func TestRankTopNTruncatesButKeepsFullTotal(t *testing.T) {
	engine := NewEngine()

	result, err := engine.Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag:   entity.IntentRankTopN,
		Count: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	assert.True(t, result.Truncated)
	// Percent stays relative to all defects, not the truncated list.
	assert.InDelta(t, 8.0/11.0*100, result.Entries[0].Percent, 0.01)
}

func TestRankTopNZeroDefects(t *testing.T) {
	table, err := entity.NewTable([]entity.Column{
		{Name: "Part Name", Values: []entity.Value{entity.StringValue("PART-101")}},
		{Name: "Burr", Values: []entity.Value{entity.NumberValue(0)}},
	})
	require.NoError(t, err)

	mapping := entity.ColumnMapping{Identifier: "Part Name", Defects: []string{"Burr"}}
	result, aggErr := NewEngine().Aggregate(table, mapping, entity.Intent{Tag: entity.IntentRankTopN})
	require.NoError(t, aggErr)

	assert.True(t, result.ZeroDenominator)
	assert.Empty(t, result.Entries)
}

func TestPercentage(t *testing.T) {
	result, err := NewEngine().Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag: entity.IntentPercentage,
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	// 11 rejected out of 400 inspected = 2.75% -> 2.8 after rounding.
	assert.Equal(t, 2.8, result.Entries[0].Percent)
	assert.Equal(t, 11.0, result.Entries[0].Value)
}

func TestPercentageZeroInspected(t *testing.T) {
	table, err := entity.NewTable([]entity.Column{
		{Name: "Part Name", Values: []entity.Value{entity.StringValue("PART-101")}},
		{Name: "Inspected Qty.", Values: []entity.Value{entity.NumberValue(0)}},
		{Name: "Total Rej Qty.", Values: []entity.Value{entity.NumberValue(0)}},
	})
	require.NoError(t, err)

	mapping := entity.ColumnMapping{
		Identifier: "Part Name",
		Inspected:  "Inspected Qty.",
		Rejected:   "Total Rej Qty.",
	}
	result, aggErr := NewEngine().Aggregate(table, mapping, entity.Intent{Tag: entity.IntentPercentage})
	require.NoError(t, aggErr)

	assert.True(t, result.ZeroDenominator)
	assert.Equal(t, 0.0, result.Entries[0].Percent)
}

func TestTrendOverTimeOmitsEmptyMonths(t *testing.T) {
	result, err := NewEngine().Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag: entity.IntentTrendOverTime,
	})
	require.NoError(t, err)

	// January and March have rows; February is absent, not zero.
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "2025-01", result.Entries[0].Label)
	assert.Equal(t, 7.0, result.Entries[0].Value)
	assert.Equal(t, "2025-03", result.Entries[1].Label)
	assert.Equal(t, 4.0, result.Entries[1].Value)
}

func TestTimeWindowFiltersRows(t *testing.T) {
	window := &entity.DateRange{
		From: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC),
	}
	result, err := NewEngine().Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag:        entity.IntentPercentage,
		TimeWindow: window,
	})
	require.NoError(t, err)

	// Only the March row: 4 rejected of 100 inspected.
	assert.Equal(t, 4.0, result.Entries[0].Value)
	assert.Equal(t, 100.0, result.Total)
}

func TestEntityBreakdown(t *testing.T) {
	result, err := NewEngine().Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag: entity.IntentEntityBreakdown,
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "PART-101", result.Entries[0].Label)
	assert.Equal(t, 7.0, result.Entries[0].Value)
}

func TestEntityBreakdownUnknownEntity(t *testing.T) {
	_, err := NewEngine().Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag:        entity.IntentEntityBreakdown,
		EntityName: "WIDGET-X",
	})
	require.ErrorIs(t, err, entity.ErrUnknownEntity)
}

func TestEntityReason(t *testing.T) {
	result, err := NewEngine().Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag:        entity.IntentEntityReason,
		EntityName: "part 101",
		Count:      entity.DefaultTopN,
	})
	require.NoError(t, err)

	// PART-101 rows only: Burr 5, Damage 2.
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "Burr", result.Entries[0].Label)
	assert.Equal(t, 5.0, result.Entries[0].Value)
	assert.Equal(t, 7.0, result.Total)
}

func TestPercentageScopedToEntity(t *testing.T) {
	result, err := NewEngine().Aggregate(testTable(t), testMapping(), entity.Intent{
		Tag:        entity.IntentPercentage,
		EntityName: "PART-101",
	})
	require.NoError(t, err)

	// PART-101 rows: 7 rejected of 300 inspected = 2.333 -> 2.3.
	assert.Equal(t, 7.0, result.Entries[0].Value)
	assert.Equal(t, 2.3, result.Entries[0].Percent)
}

func TestNonNumericCellsCountedAsSkipped(t *testing.T) {
	table, err := entity.NewTable([]entity.Column{
		{Name: "Part Name", Values: []entity.Value{
			entity.StringValue("PART-101"),
			entity.StringValue("PART-101"),
		}},
		{Name: "Burr", Values: []entity.Value{
			entity.NumberValue(2),
			entity.StringValue("n/a"),
		}},
	})
	require.NoError(t, err)

	mapping := entity.ColumnMapping{Identifier: "Part Name", Defects: []string{"Burr"}}
	result, aggErr := NewEngine().Aggregate(table, mapping, entity.Intent{Tag: entity.IntentRankTopN})
	require.NoError(t, aggErr)

	assert.Equal(t, 2.0, result.Total)
	assert.Equal(t, 1, result.SkippedCells)
}
