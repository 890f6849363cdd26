package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualichat/qc-backend/internal/entity"
)

var testEntities = []string{"PART-101", "PART-202", "Bearing Housing"}

func classify(t *testing.T, text string, snap Snapshot) entity.Intent {
	t.Helper()
	intent, err := New().Classify(text, snap)
	require.NoError(t, err)
	return intent
}

func TestClassifyRankTopN(t *testing.T) {
	intent := classify(t, "top 5 defects", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentRankTopN, intent.Tag)
	assert.Equal(t, 5, intent.Count)
	assert.True(t, intent.CountExplicit)
}

func TestClassifyRankDefaultCount(t *testing.T) {
	intent := classify(t, "What are the most common defects?", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentRankTopN, intent.Tag)
	assert.Equal(t, entity.DefaultTopN, intent.Count)
	assert.False(t, intent.CountExplicit)
}

func TestClassifyPercentageWithEntity(t *testing.T) {
	intent := classify(t, "rejection percentage for PART-101", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentPercentage, intent.Tag)
	assert.Equal(t, "PART-101", intent.EntityName)
}

func TestClassifyMultiWordEntity(t *testing.T) {
	intent := classify(t, "why does the bearing housing get rejected", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentEntityReason, intent.Tag)
	assert.Equal(t, "Bearing Housing", intent.EntityName)
}

func TestClassifyBackReferenceWithContext(t *testing.T) {
	snap := Snapshot{
		Entities:   testEntities,
		LastEntity: "PART-202",
		LastIntent: entity.IntentEntityBreakdown,
	}
	intent := classify(t, "why does this part get rejected?", snap)

	assert.Equal(t, entity.IntentEntityReason, intent.Tag)
	assert.Equal(t, "PART-202", intent.EntityName)
}

func TestClassifyBackReferenceWithoutContext(t *testing.T) {
	_, err := New().Classify("why does this part get rejected?", Snapshot{Entities: testEntities})
	require.ErrorIs(t, err, entity.ErrAmbiguousReference)
}

func TestClassifyPronounBackReference(t *testing.T) {
	snap := Snapshot{Entities: testEntities, LastEntity: "PART-101"}
	intent := classify(t, "why is it rejected", snap)

	assert.Equal(t, entity.IntentEntityReason, intent.Tag)
	assert.Equal(t, "PART-101", intent.EntityName)
}

func TestClassifyChartRequestAboutDefects(t *testing.T) {
	intent := classify(t, "draw a pie chart for defects", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentRankTopN, intent.Tag)
	assert.True(t, intent.WantsChart)
	assert.Equal(t, entity.ChartPie, intent.ChartKind)
}

func TestClassifyChartDefaultsToBar(t *testing.T) {
	intent := classify(t, "plot the top defects", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentRankTopN, intent.Tag)
	assert.True(t, intent.WantsChart)
	assert.Equal(t, entity.ChartBar, intent.ChartKind)
}

func TestClassifyTrendGetsLineChart(t *testing.T) {
	intent := classify(t, "graph the rejection trend over time", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentTrendOverTime, intent.Tag)
	assert.Equal(t, entity.ChartLine, intent.ChartKind)
}

func TestClassifyBreakdown(t *testing.T) {
	intent := classify(t, "show the breakdown by part", Snapshot{Entities: testEntities})
	assert.Equal(t, entity.IntentEntityBreakdown, intent.Tag)
}

func TestClassifyHelp(t *testing.T) {
	intent := classify(t, "help", Snapshot{})
	assert.Equal(t, entity.IntentHelp, intent.Tag)
}

func TestClassifyUnknown(t *testing.T) {
	intent := classify(t, "tell me a joke", Snapshot{Entities: testEntities})
	assert.Equal(t, entity.IntentUnknown, intent.Tag)
}

func TestClassifyUnknownEntityCandidate(t *testing.T) {
	intent := classify(t, "why so many rejections for WIDGET-X", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentEntityReason, intent.Tag)
	assert.Equal(t, "widget x", intent.EntityName)
}

func TestClassifyTimeWindow(t *testing.T) {
	intent := classify(t, "rejection rate in january 2025", Snapshot{Entities: testEntities})

	assert.Equal(t, entity.IntentPercentage, intent.Tag)
	require.NotNil(t, intent.TimeWindow)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), intent.TimeWindow.From)
	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), intent.TimeWindow.To)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "part 101", Normalize("  PART-101! "))
	assert.Equal(t, "top 5 defects", Normalize("Top   5 <defects>"))
}

func TestSuggest(t *testing.T) {
	got := Suggest("PART-10", []string{"PART-101", "PART-202", "Bearing Housing"}, 2)

	require.NotEmpty(t, got)
	assert.Equal(t, "PART-101", got[0])
}
