package entity

// AggregationEntry is one (label, value, percentage-of-total) triple.
type AggregationEntry struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// AggregationResult is the structured outcome of one aggregation
// template. Percent fields are relative to Total even when Entries is
// truncated to a top-N slice; Truncated tells the consumer the listed
// percentages do not sum to 100.
type AggregationResult struct {
	Entries []AggregationEntry `json:"entries"`
	Total   float64            `json:"total"`

	// Truncated is set when Entries is a top-N cut of a larger set.
	Truncated bool `json:"truncated,omitempty"`

	// ZeroDenominator marks a degenerate percentage aggregation
	// (denominator sum was zero). The result is a flagged zero, not
	// an error.
	ZeroDenominator bool `json:"zero_denominator,omitempty"`

	// SkippedCells counts non-numeric or missing cells that were
	// treated as zero, so callers can flag data-quality issues.
	SkippedCells int `json:"skipped_cells,omitempty"`
}
