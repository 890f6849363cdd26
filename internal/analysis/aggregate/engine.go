package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/qualichat/qc-backend/internal/analysis/classifier"
	"github.com/qualichat/qc-backend/internal/entity"
)

// Aggregator executes one aggregation template against a loaded
// table. There is a single production implementation; the interface
// exists so the chat usecase can be tested with a fake.
type Aggregator interface {
	Aggregate(table *entity.Table, mapping entity.ColumnMapping, intent entity.Intent) (*entity.AggregationResult, error)
}

// Engine is the production Aggregator.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

var _ Aggregator = &Engine{}

func (e *Engine) Aggregate(table *entity.Table, mapping entity.ColumnMapping, intent entity.Intent) (*entity.AggregationResult, error) {
	rows, err := selectRows(table, mapping, intent.TimeWindow)
	if err != nil {
		return nil, err
	}

	// Percentage and trend questions scoped to one entity ("rejection
	// rate for PART-101") operate on that entity's rows only.
	if intent.EntityName != "" &&
		(intent.Tag == entity.IntentPercentage || intent.Tag == entity.IntentTrendOverTime) {
		rows, err = matchEntityRows(table, mapping, rows, intent.EntityName)
		if err != nil {
			return nil, err
		}
	}

	switch intent.Tag {
	case entity.IntentRankTopN, entity.IntentChartRequest:
		return e.rankTopN(table, mapping, rows, intent.Count)
	case entity.IntentPercentage:
		return e.percentage(table, mapping, rows)
	case entity.IntentTrendOverTime:
		return e.trendOverTime(table, mapping, rows)
	case entity.IntentEntityBreakdown:
		return e.entityBreakdown(table, mapping, rows, intent.EntityName)
	case entity.IntentEntityReason:
		return e.entityReason(table, mapping, rows, intent.EntityName, intent.Count)
	default:
		return nil, fmt.Errorf("%w: no aggregation template for intent %s",
			entity.ErrInvalidParameter, intent.Tag)
	}
}

// rankTopN sums each defect-type column, sorts descending (ties keep
// original column order), truncates to count. Percentages are always
// relative to the grand total across all defect columns, not the
// truncated set.
func (e *Engine) rankTopN(table *entity.Table, mapping entity.ColumnMapping, rows []int, count int) (*entity.AggregationResult, error) {
	if len(mapping.Defects) == 0 {
		return nil, fmt.Errorf("%w: no defect-type columns designated", entity.ErrMissingColumn)
	}

	result := &entity.AggregationResult{}

	type defectSum struct {
		label string
		sum   float64
	}
	sums := make([]defectSum, 0, len(mapping.Defects))
	for _, name := range mapping.Defects {
		col, ok := table.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, name)
		}
		sum := sumNumeric(col, rows, &result.SkippedCells)
		result.Total += sum
		if sum > 0 {
			sums = append(sums, defectSum{label: name, sum: sum})
		}
	}

	sort.SliceStable(sums, func(i, j int) bool { return sums[i].sum > sums[j].sum })

	if count > 0 && len(sums) > count {
		sums = sums[:count]
		result.Truncated = true
	}

	for _, ds := range sums {
		result.Entries = append(result.Entries, entity.AggregationEntry{
			Label:   ds.label,
			Value:   ds.sum,
			Percent: percentOf(ds.sum, result.Total),
		})
	}
	if result.Total == 0 {
		result.ZeroDenominator = true
	}
	return result, nil
}

// percentage computes sum(rejected)/sum(inspected)*100 rounded to one
// decimal place. A zero denominator yields a flagged zero result, not
// an error: an all-pass inspection log is valid input.
func (e *Engine) percentage(table *entity.Table, mapping entity.ColumnMapping, rows []int) (*entity.AggregationResult, error) {
	rejected, ok := table.Column(mapping.Rejected)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, mapping.Rejected)
	}
	inspected, ok := table.Column(mapping.Inspected)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, mapping.Inspected)
	}

	result := &entity.AggregationResult{}
	rejectedSum := sumNumeric(rejected, rows, &result.SkippedCells)
	inspectedSum := sumNumeric(inspected, rows, &result.SkippedCells)
	result.Total = inspectedSum

	rate := 0.0
	if inspectedSum == 0 {
		result.ZeroDenominator = true
	} else {
		rate = math.Round(rejectedSum/inspectedSum*1000) / 10
	}

	result.Entries = []entity.AggregationEntry{{
		Label:   mapping.Rejected,
		Value:   rejectedSum,
		Percent: rate,
	}}
	return result, nil
}

// trendOverTime buckets rows by calendar month of the date column and
// sums the rejected quantity per bucket, ordered chronologically.
// Buckets with no rows are omitted rather than zero-filled, so chart
// consumers see gaps instead of fabricated zero months.
func (e *Engine) trendOverTime(table *entity.Table, mapping entity.ColumnMapping, rows []int) (*entity.AggregationResult, error) {
	dates, ok := table.Column(mapping.Date)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, mapping.Date)
	}
	rejected, ok := table.Column(mapping.Rejected)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, mapping.Rejected)
	}

	result := &entity.AggregationResult{}
	buckets := make(map[string]float64)
	for _, r := range rows {
		d := dates.Values[r]
		if d.Kind != entity.ValueDate {
			if d.Kind != entity.ValueEmpty {
				result.SkippedCells++
			}
			continue
		}
		label := d.Time.Format("2006-01")
		buckets[label] += numericCell(rejected.Values[r], &result.SkippedCells)
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		result.Total += buckets[label]
	}
	for _, label := range labels {
		result.Entries = append(result.Entries, entity.AggregationEntry{
			Label:   label,
			Value:   buckets[label],
			Percent: percentOf(buckets[label], result.Total),
		})
	}
	if result.Total == 0 {
		result.ZeroDenominator = true
	}
	return result, nil
}

// entityBreakdown groups rows by identifier value and sums the
// rejected quantity per group, sorted descending. With an entity name
// the result is scoped to that entity but percentages stay relative
// to the whole table.
func (e *Engine) entityBreakdown(table *entity.Table, mapping entity.ColumnMapping, rows []int, entityName string) (*entity.AggregationResult, error) {
	ids, ok := table.Column(mapping.Identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, mapping.Identifier)
	}
	rejected, ok := table.Column(mapping.Rejected)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, mapping.Rejected)
	}

	result := &entity.AggregationResult{}
	sums := make(map[string]float64)
	var order []string
	for _, r := range rows {
		id := ids.Values[r]
		if id.Kind != entity.ValueString || id.Str == "" {
			continue
		}
		if _, seen := sums[id.Str]; !seen {
			order = append(order, id.Str)
		}
		sums[id.Str] += numericCell(rejected.Values[r], &result.SkippedCells)
	}

	for _, name := range order {
		result.Total += sums[name]
	}

	selected := order
	if entityName != "" {
		selected = selected[:0]
		for _, name := range order {
			if identifierMatches(name, entityName) {
				selected = append(selected, name)
			}
		}
		if len(selected) == 0 {
			return nil, fmt.Errorf("%w: %q", entity.ErrUnknownEntity, entityName)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return sums[selected[i]] > sums[selected[j]]
	})

	for _, name := range selected {
		result.Entries = append(result.Entries, entity.AggregationEntry{
			Label:   name,
			Value:   sums[name],
			Percent: percentOf(sums[name], result.Total),
		})
	}
	if result.Total == 0 {
		result.ZeroDenominator = true
	}
	return result, nil
}

// entityReason ranks defect columns over the rows belonging to one
// entity. Percentages are relative to that entity's own rejection
// total.
func (e *Engine) entityReason(table *entity.Table, mapping entity.ColumnMapping, rows []int, entityName string, count int) (*entity.AggregationResult, error) {
	if entityName == "" {
		return nil, fmt.Errorf("%w: entity name", entity.ErrMissingField)
	}

	matched, err := matchEntityRows(table, mapping, rows, entityName)
	if err != nil {
		return nil, err
	}

	return e.rankTopN(table, mapping, matched, count)
}

// matchEntityRows narrows rows to those whose identifier matches the
// entity name.
func matchEntityRows(table *entity.Table, mapping entity.ColumnMapping, rows []int, entityName string) ([]int, error) {
	ids, ok := table.Column(mapping.Identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, mapping.Identifier)
	}

	var matched []int
	for _, r := range rows {
		id := ids.Values[r]
		if id.Kind == entity.ValueString && identifierMatches(id.Str, entityName) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownEntity, entityName)
	}
	return matched, nil
}

// selectRows returns the row indexes inside the optional time window,
// or all rows when no window is set.
func selectRows(table *entity.Table, mapping entity.ColumnMapping, window *entity.DateRange) ([]int, error) {
	n := table.Rows()
	rows := make([]int, 0, n)

	if window == nil {
		for r := 0; r < n; r++ {
			rows = append(rows, r)
		}
		return rows, nil
	}

	dates, ok := table.Column(mapping.Date)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrMissingColumn, mapping.Date)
	}
	for r := 0; r < n; r++ {
		d := dates.Values[r]
		if d.Kind != entity.ValueDate {
			continue
		}
		if d.Time.Before(window.From) || d.Time.After(window.To) {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// identifierMatches implements the loose entity match: exact on
// normalized forms, or the query contained in the identifier value.
func identifierMatches(value, query string) bool {
	valueNorm := classifier.Normalize(value)
	queryNorm := classifier.Normalize(query)
	if queryNorm == "" {
		return false
	}
	return valueNorm == queryNorm ||
		strings.Contains(" "+valueNorm+" ", " "+queryNorm+" ")
}

// sumNumeric sums a column over the selected rows. Non-numeric cells
// are treated as zero; the non-empty ones are counted in skipped so
// the substitution is visible to callers.
func sumNumeric(col *entity.Column, rows []int, skipped *int) float64 {
	var sum float64
	for _, r := range rows {
		sum += numericCell(col.Values[r], skipped)
	}
	return sum
}

func numericCell(v entity.Value, skipped *int) float64 {
	switch v.Kind {
	case entity.ValueNumber:
		return v.Num
	case entity.ValueEmpty:
		return 0
	default:
		*skipped++
		return 0
	}
}

func percentOf(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value / total * 100
}
