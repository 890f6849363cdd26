package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualichat/qc-backend/internal/entity"
)

func rankedResult(n int) *entity.AggregationResult {
	labels := []string{"Burr", "Damage", "Oversize Dia", "Scratch", "Crack", "Dent", "Porosity"}
	result := &entity.AggregationResult{}
	for i := 0; i < n; i++ {
		value := float64(100 - i*10)
		result.Total += value
		result.Entries = append(result.Entries, entity.AggregationEntry{
			Label: labels[i%len(labels)],
			Value: value,
		})
	}
	for i := range result.Entries {
		result.Entries[i].Percent = result.Entries[i].Value / result.Total * 100
	}
	return result
}

func TestComposeRankText(t *testing.T) {
	result := rankedResult(3)
	intent := entity.Intent{Tag: entity.IntentRankTopN, Count: entity.DefaultTopN}

	text, chart := NewComposer().Compose(result, intent)

	assert.Contains(t, text, "Top 3 rejection reasons")
	assert.Contains(t, text, "1. Burr")
	assert.Contains(t, text, "The top 3 defects account for")
	// Burr/Damage match the surface-defect rule once.
	assert.Contains(t, text, "Surface defects detected")
	assert.Nil(t, chart)
}

func TestComposeTextListShortenedToFive(t *testing.T) {
	result := rankedResult(7)
	intent := entity.Intent{Tag: entity.IntentRankTopN, Count: entity.DefaultTopN}

	text, _ := NewComposer().Compose(result, intent)

	assert.Contains(t, text, "5. ")
	assert.NotContains(t, text, "6. ")
	assert.Contains(t, text, "do not add up to 100%")
}

func TestComposeExplicitCountKeepsFullList(t *testing.T) {
	result := rankedResult(7)
	intent := entity.Intent{Tag: entity.IntentRankTopN, Count: 7, CountExplicit: true}

	text, _ := NewComposer().Compose(result, intent)
	assert.Contains(t, text, "7. ")
}

func TestComposeChartDescriptor(t *testing.T) {
	result := rankedResult(3)
	intent := entity.Intent{
		Tag:        entity.IntentRankTopN,
		Count:      entity.DefaultTopN,
		WantsChart: true,
		ChartKind:  entity.ChartBar,
	}

	_, chart := NewComposer().Compose(result, intent)

	require.NotNil(t, chart)
	assert.Equal(t, entity.ChartBar, chart.Kind)
	assert.Equal(t, []string{"Burr", "Damage", "Oversize Dia"}, chart.Labels)
	assert.Len(t, chart.Values, 3)
}

func TestComposePieChartCappedAtTenSlices(t *testing.T) {
	labels := make([]entity.AggregationEntry, 14)
	for i := range labels {
		labels[i] = entity.AggregationEntry{Label: strings.Repeat("x", i+1), Value: 1}
	}
	result := &entity.AggregationResult{Entries: labels, Total: 14}
	intent := entity.Intent{Tag: entity.IntentRankTopN, WantsChart: true, ChartKind: entity.ChartPie}

	_, chart := NewComposer().Compose(result, intent)

	require.NotNil(t, chart)
	assert.Len(t, chart.Labels, 10)
}

func TestComposePercentage(t *testing.T) {
	result := &entity.AggregationResult{
		Entries: []entity.AggregationEntry{{Label: "Total Rej Qty.", Value: 11, Percent: 2.8}},
		Total:   400,
	}
	text, _ := NewComposer().Compose(result, entity.Intent{Tag: entity.IntentPercentage})

	assert.Contains(t, text, "2.8%")
	assert.Contains(t, text, "11 rejected out of 400 inspected")
}

func TestComposePercentageZeroDenominator(t *testing.T) {
	result := &entity.AggregationResult{
		Entries:         []entity.AggregationEntry{{Label: "Total Rej Qty."}},
		ZeroDenominator: true,
	}
	text, _ := NewComposer().Compose(result, entity.Intent{Tag: entity.IntentPercentage})

	assert.Contains(t, text, "cannot be computed")
	assert.Contains(t, text, "0.0%")
}

func TestComposeTrendDirection(t *testing.T) {
	result := &entity.AggregationResult{
		Entries: []entity.AggregationEntry{
			{Label: "2025-01", Value: 7},
			{Label: "2025-03", Value: 4},
		},
		Total: 11,
	}
	text, _ := NewComposer().Compose(result, entity.Intent{Tag: entity.IntentTrendOverTime})

	assert.Contains(t, text, "falling")
	assert.Contains(t, text, "2025-01: 7")
	assert.Contains(t, text, "omitted rather than shown as zero")
}

func TestComposeReasonTopTwoInsight(t *testing.T) {
	result := &entity.AggregationResult{
		Entries: []entity.AggregationEntry{
			{Label: "Burr", Value: 50, Percent: 50},
			{Label: "Damage", Value: 30, Percent: 30},
			{Label: "Crack", Value: 20, Percent: 20},
		},
		Total: 100,
	}
	intent := entity.Intent{Tag: entity.IntentEntityReason, EntityName: "PART-101"}

	text, _ := NewComposer().Compose(result, intent)

	assert.Contains(t, text, "Why PART-101 is rejected")
	assert.Contains(t, text, "The top 2 defects account for 80.0%")
}

func TestComposeDataQualityNote(t *testing.T) {
	result := rankedResult(2)
	result.SkippedCells = 3

	text, _ := NewComposer().Compose(result, entity.Intent{Tag: entity.IntentRankTopN})
	assert.Contains(t, text, "3 non-numeric cells")
}

func TestComposeHelpWithoutDataset(t *testing.T) {
	text := NewComposer().ComposeHelp(&entity.ChatSession{ID: "abc"})

	assert.Contains(t, text, "top 10 rejection reasons")
	assert.Contains(t, text, "No spreadsheet is loaded yet")
}

func TestComposeHelpWithDataset(t *testing.T) {
	text := NewComposer().ComposeHelp(&entity.ChatSession{
		ID:          "abc",
		DatasetName: "rejects.xlsx",
		DatasetRows: 120,
		Entities:    []string{"PART-101", "PART-202"},
	})

	assert.Contains(t, text, "rejects.xlsx (120 rows, 2 parts)")
}
