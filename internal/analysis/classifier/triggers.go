package classifier

import "github.com/qualichat/qc-backend/internal/entity"

// triggerGroup binds a set of trigger phrases to an intent tag. The
// phrases are matched against normalized text, so they contain only
// lowercase words separated by single spaces.
type triggerGroup struct {
	tag     entity.IntentTag
	phrases []string
}

// triggerGroups is tested in fixed priority order: ranking phrases
// before reason phrases before breakdown phrases before trend phrases
// before percentage phrases. Chart verbs are handled separately and
// checked before any of these.
var triggerGroups = []triggerGroup{
	{
		tag: entity.IntentRankTopN,
		phrases: []string{
			"top", "most frequent", "most common", "highest",
			"worst", "biggest", "largest", "main causes",
		},
	},
	{
		tag: entity.IntentEntityReason,
		phrases: []string{
			"why", "reason for", "reasons for", "what caused",
			"cause of", "causes of", "because of",
		},
	},
	{
		tag: entity.IntentEntityBreakdown,
		phrases: []string{
			"breakdown", "distribution", "by part", "per part",
			"each part", "group by", "split by",
		},
	},
	{
		tag: entity.IntentTrendOverTime,
		phrases: []string{
			"trend", "over time", "monthly", "per month",
			"by month", "timeline", "month", "year",
		},
	},
	{
		tag: entity.IntentPercentage,
		phrases: []string{
			"percentage", "percent", "ratio", "rate", "share of",
		},
	},
	{
		tag: entity.IntentHelp,
		phrases: []string{
			"help", "what can you do", "what can you answer",
			"how do i", "how to use", "examples",
		},
	},
}

// chartVerbs mark a turn as a chart request regardless of which data
// intent it carries.
var chartVerbs = []string{
	"draw", "plot", "visualize", "visualise", "chart", "graph",
}

// chartKinds maps kind words in the text to the descriptor kind.
var chartKinds = []struct {
	word string
	kind entity.ChartKind
}{
	{"pie", entity.ChartPie},
	{"line", entity.ChartLine},
	{"scatter", entity.ChartScatter},
	{"bar", entity.ChartBar},
}

// defectSubjects recognize that a bare chart request ("draw a pie
// chart for defects") is about the defect ranking.
var defectSubjects = []string{
	"defect", "defects", "rejection", "rejections", "reject",
	"reasons", "causes",
}

// backReferences are pronoun-like phrases that inherit the entity
// from conversation context.
var backReferences = []string{
	"this part", "that part", "this one", "that one",
	"same part", "this component", "it",
}
