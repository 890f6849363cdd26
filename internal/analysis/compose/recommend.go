package compose

import "strings"

// recommendationRules is the static defect-category keyword table.
// The first rule whose keyword appears in a ranked label contributes
// its advice once; nothing here is inferred from the data.
var recommendationRules = []struct {
	keywords []string
	advice   string
}{
	{
		keywords: []string{"dia", "size", "oversize", "undersize", "dimension"},
		advice:   "Size-related defects dominate: check tooling wear and machine setup before the next run.",
	},
	{
		keywords: []string{"burr", "damage", "mark", "scratch", "dent"},
		advice:   "Surface defects detected: review deburring, material handling and fixturing.",
	},
	{
		keywords: []string{"drill", "bore", "mill", "thread", "tap", "face"},
		advice:   "Machining-operation defects detected: verify machine parameters and program offsets for the affected operations.",
	},
	{
		keywords: []string{"crack", "porosity", "blow", "casting"},
		advice:   "Material or casting defects detected: escalate to incoming-material inspection.",
	},
}

// recommendationsFor collects advice sentences for the ranked labels,
// each rule at most once, in rule order.
func recommendationsFor(labels []string) []string {
	var out []string
	for _, rule := range recommendationRules {
		if ruleMatches(rule.keywords, labels) {
			out = append(out, rule.advice)
		}
	}
	return out
}

func ruleMatches(keywords, labels []string) bool {
	for _, label := range labels {
		lower := strings.ToLower(label)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
