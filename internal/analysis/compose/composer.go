package compose

import (
	"fmt"
	"strings"

	"github.com/qualichat/qc-backend/internal/entity"
)

// Text list length when the user did not name a count; charts keep
// the full truncation the classifier resolved.
const defaultTextListLen = 5

// Pie charts stay readable only up to this many slices.
const maxPieSlices = 10

// Composer turns an aggregation result into deterministic response
// text plus an optional chart descriptor.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds the multi-section answer: a headline statistic, the
// ranked list with percentages, and rule-based recommendation
// sentences from the static defect-category table.
func (c *Composer) Compose(result *entity.AggregationResult, intent entity.Intent) (string, *entity.ChartDescriptor) {
	var text string
	switch intent.Tag {
	case entity.IntentRankTopN, entity.IntentChartRequest:
		text = c.rankText(result, intent)
	case entity.IntentPercentage:
		text = c.percentageText(result)
	case entity.IntentTrendOverTime:
		text = c.trendText(result)
	case entity.IntentEntityBreakdown:
		text = c.breakdownText(result, intent)
	case entity.IntentEntityReason:
		text = c.reasonText(result, intent)
	default:
		text = "I could not map that question to an analysis."
	}

	if note := dataQualityNote(result); note != "" {
		text += "\n\n" + note
	}

	return text, c.chartDescriptor(result, intent)
}

// chartDescriptor emits a descriptor whenever the turn asked for a
// chart; ranking and trend answers also chart when a chart verb was
// detected without an explicit kind.
func (c *Composer) chartDescriptor(result *entity.AggregationResult, intent entity.Intent) *entity.ChartDescriptor {
	if intent.ChartKind == "" && !intent.WantsChart {
		return nil
	}
	if len(result.Entries) == 0 {
		return nil
	}

	kind := intent.ChartKind
	if kind == "" {
		kind = entity.ChartBar
		if intent.Tag == entity.IntentTrendOverTime {
			kind = entity.ChartLine
		}
	}

	entries := result.Entries
	if kind == entity.ChartPie && len(entries) > maxPieSlices {
		entries = entries[:maxPieSlices]
	}

	desc := &entity.ChartDescriptor{
		Kind:  kind,
		Title: chartTitle(intent, len(entries)),
	}
	for _, e := range entries {
		desc.Labels = append(desc.Labels, e.Label)
		desc.Values = append(desc.Values, e.Value)
	}
	return desc
}

func chartTitle(intent entity.Intent, n int) string {
	switch intent.Tag {
	case entity.IntentTrendOverTime:
		return "Monthly Rejection Trend"
	case entity.IntentEntityBreakdown:
		return "Rejections by Part"
	case entity.IntentEntityReason:
		return fmt.Sprintf("Top Rejection Causes for %s", intent.EntityName)
	default:
		return fmt.Sprintf("Top %d Rejection Causes", n)
	}
}

func (c *Composer) rankText(result *entity.AggregationResult, intent entity.Intent) string {
	if len(result.Entries) == 0 {
		return "No rejections are recorded in the current dataset."
	}

	entries := textEntries(result.Entries, intent)

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d rejection reasons:\n\n", len(entries))
	writeRankedList(&b, entries)

	fmt.Fprintf(&b, "\nTotal rejections across all defect types: %s.", formatCount(result.Total))
	if result.Truncated || len(entries) < len(result.Entries) {
		b.WriteString(" Percentages are shares of the full total, so the listed items do not add up to 100%.")
	}

	if len(entries) >= 3 {
		top3 := entries[0].Percent + entries[1].Percent + entries[2].Percent
		fmt.Fprintf(&b, "\nThe top 3 defects account for %.1f%% of all rejections.", top3)
	}

	writeRecommendations(&b, entries)
	return b.String()
}

func (c *Composer) percentageText(result *entity.AggregationResult) string {
	if result.ZeroDenominator {
		return "The inspected quantity in this dataset sums to zero, so a rejection rate cannot be computed. Reported rate: 0.0%."
	}
	e := result.Entries[0]
	return fmt.Sprintf("Overall rejection rate: %.1f%% (%s rejected out of %s inspected).",
		e.Percent, formatCount(e.Value), formatCount(result.Total))
}

func (c *Composer) trendText(result *entity.AggregationResult) string {
	if len(result.Entries) == 0 {
		return "No dated rows are available to build a trend."
	}

	var b strings.Builder
	first := result.Entries[0]
	last := result.Entries[len(result.Entries)-1]
	direction := "stable"
	if last.Value > first.Value {
		direction = "rising"
	} else if last.Value < first.Value {
		direction = "falling"
	}
	fmt.Fprintf(&b, "Rejection trend over %d months is %s (%s: %s, %s: %s).\n\n",
		len(result.Entries), direction,
		first.Label, formatCount(first.Value),
		last.Label, formatCount(last.Value))

	for _, e := range result.Entries {
		fmt.Fprintf(&b, "- %s: %s\n", e.Label, formatCount(e.Value))
	}
	b.WriteString("\nMonths without recorded inspections are omitted rather than shown as zero.")
	return b.String()
}

func (c *Composer) breakdownText(result *entity.AggregationResult, intent entity.Intent) string {
	if len(result.Entries) == 0 {
		return "No rejections are recorded in the current dataset."
	}

	var b strings.Builder
	if intent.EntityName != "" {
		e := result.Entries[0]
		fmt.Fprintf(&b, "%s has %s recorded rejections (%.1f%% of all rejections).",
			e.Label, formatCount(e.Value), e.Percent)
		return b.String()
	}

	fmt.Fprintf(&b, "Rejections by part (%d parts, %s total):\n\n",
		len(result.Entries), formatCount(result.Total))
	writeRankedList(&b, textEntries(result.Entries, intent))
	return b.String()
}

func (c *Composer) reasonText(result *entity.AggregationResult, intent entity.Intent) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("%s has recorded rejections, but no defect-type breakdown is available.", intent.EntityName)
	}

	entries := textEntries(result.Entries, intent)

	var b strings.Builder
	fmt.Fprintf(&b, "Why %s is rejected (%s rejections across its defect types):\n\n",
		intent.EntityName, formatCount(result.Total))
	writeRankedList(&b, entries)

	if len(entries) >= 2 {
		top2 := entries[0].Percent + entries[1].Percent
		if top2 > 60 {
			fmt.Fprintf(&b, "\nThe top 2 defects account for %.1f%% of this part's rejections: focus there for maximum impact.", top2)
		}
	}

	writeRecommendations(&b, entries)
	return b.String()
}

// ComposeHelp lists the supported question shapes, with the dataset
// fact sheet when a table is loaded.
func (c *Composer) ComposeHelp(session *entity.ChatSession) string {
	var b strings.Builder
	b.WriteString("I answer questions about the uploaded quality-control spreadsheet. Try:\n\n")
	b.WriteString("- \"top 10 rejection reasons\"\n")
	b.WriteString("- \"draw a pie chart for defects\"\n")
	b.WriteString("- \"what is the rejection rate\"\n")
	b.WriteString("- \"monthly rejection trend\"\n")
	b.WriteString("- \"rejections by part\"\n")
	b.WriteString("- \"why this part?\" after asking about a part\n")

	if session != nil && session.DatasetRows > 0 {
		fmt.Fprintf(&b, "\nCurrent dataset: %s (%d rows, %d parts).",
			session.DatasetName, session.DatasetRows, len(session.Entities))
	} else {
		b.WriteString("\nNo spreadsheet is loaded yet; upload one to begin.")
	}
	return b.String()
}

func textEntries(entries []entity.AggregationEntry, intent entity.Intent) []entity.AggregationEntry {
	if intent.CountExplicit || intent.WantsChart {
		return entries
	}
	if len(entries) > defaultTextListLen {
		return entries[:defaultTextListLen]
	}
	return entries
}

func writeRankedList(b *strings.Builder, entries []entity.AggregationEntry) {
	for i, e := range entries {
		fmt.Fprintf(b, "%d. %s: %s (%.1f%%)\n", i+1, e.Label, formatCount(e.Value), e.Percent)
	}
}

func writeRecommendations(b *strings.Builder, entries []entity.AggregationEntry) {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label
	}
	for _, advice := range recommendationsFor(labels) {
		b.WriteString("\n")
		b.WriteString(advice)
	}
}

func dataQualityNote(result *entity.AggregationResult) string {
	if result.SkippedCells == 0 {
		return ""
	}
	return fmt.Sprintf("Note: %d non-numeric cells were treated as zero during aggregation; the source sheet may need cleanup.",
		result.SkippedCells)
}

func formatCount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
