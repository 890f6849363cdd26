package entity

import "time"

// IntentTag is the symbolic classification of a user's request.
type IntentTag string

const (
	IntentRankTopN        IntentTag = "rank_top_n"
	IntentPercentage      IntentTag = "percentage"
	IntentTrendOverTime   IntentTag = "trend_over_time"
	IntentEntityBreakdown IntentTag = "entity_breakdown"
	IntentEntityReason    IntentTag = "entity_reason"
	IntentChartRequest    IntentTag = "chart_request"
	IntentHelp            IntentTag = "help"
	IntentUnknown         IntentTag = "unknown"
)

// DefaultTopN is used when a ranking question names no count.
const DefaultTopN = 15

// DateRange is an inclusive calendar window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Intent is the resolved meaning of one user turn: a tag from the
// closed set above plus the parameters extracted from the text.
type Intent struct {
	Tag   IntentTag
	Count int
	// CountExplicit is set when the text named the count ("top 7");
	// composers shorten text lists when the default was assumed.
	CountExplicit bool
	EntityName    string
	ChartKind     ChartKind
	WantsChart    bool
	TimeWindow    *DateRange
}

// ConversationContext is the per-session memory consulted when a
// follow-up turn back-references a previous answer ("why this part?").
// Owned exclusively by one session; updated only after a turn
// resolves successfully.
type ConversationContext struct {
	LastEntity string
	LastIntent IntentTag
}
