package classifier

import (
	"regexp"
	"strings"
	"time"

	"github.com/qualichat/qc-backend/internal/entity"
)

// Snapshot is the read-only view of session state consulted during
// classification: the conversation context and the known entity
// values of the currently loaded table.
type Snapshot struct {
	LastEntity string
	LastIntent entity.IntentTag
	Entities   []string
}

// Classifier maps free-form user text to an Intent. It is a pure
// function of the text and the snapshot; context mutation happens
// after aggregation succeeds, never here.
type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

var (
	topNRe       = regexp.MustCompile(`top\s*(\d{1,3})`)
	nMostRe      = regexp.MustCompile(`(\d{1,3})\s+(?:most|highest|worst|biggest|top)`)
	monthYearRe  = regexp.MustCompile(`(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})`)
	candidateRe  = regexp.MustCompile(`(?:for|of|about)\s+([a-z0-9][a-z0-9 ]*)$`)
	monthNumbers = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	}
)

// Classify resolves one user turn into an Intent.
func (c *Classifier) Classify(text string, snap Snapshot) (entity.Intent, error) {
	norm := Normalize(text)

	intent := entity.Intent{Tag: entity.IntentUnknown}
	intent.Count, intent.CountExplicit = extractCount(norm)

	intent.WantsChart, intent.ChartKind = detectChart(norm)
	intent.TimeWindow = extractTimeWindow(norm)
	intent.EntityName = matchEntity(norm, snap.Entities)

	if intent.EntityName == "" && hasBackReference(norm) {
		if snap.LastEntity == "" {
			return entity.Intent{}, entity.ErrAmbiguousReference
		}
		intent.EntityName = snap.LastEntity
	}

	for _, group := range triggerGroups {
		if matchesGroup(norm, group) {
			intent.Tag = group.tag
			break
		}
	}

	switch intent.Tag {
	case entity.IntentEntityReason:
		if intent.EntityName == "" {
			if cand := extractCandidate(norm); cand != "" {
				intent.EntityName = cand
				break
			}
			if snap.LastEntity == "" {
				return entity.Intent{}, entity.ErrAmbiguousReference
			}
			intent.EntityName = snap.LastEntity
		}

	case entity.IntentUnknown:
		switch {
		case intent.WantsChart && mentionsDefects(norm):
			intent.Tag = entity.IntentRankTopN
		case intent.WantsChart:
			intent.Tag = entity.IntentChartRequest
		case intent.EntityName != "":
			intent.Tag = entity.IntentEntityBreakdown
		default:
			if cand := extractCandidate(norm); cand != "" {
				intent.Tag = entity.IntentEntityBreakdown
				intent.EntityName = cand
			}
		}

	case entity.IntentRankTopN:
		// A ranking question scoped to one entity is a reason query.
		if intent.EntityName != "" {
			intent.Tag = entity.IntentEntityReason
		}
	}

	if intent.WantsChart && intent.ChartKind == "" {
		if intent.Tag == entity.IntentTrendOverTime {
			intent.ChartKind = entity.ChartLine
		} else {
			intent.ChartKind = entity.ChartBar
		}
	}

	return intent, nil
}

// Normalize lowercases the text, replaces punctuation with spaces and
// collapses whitespace runs, so trigger phrases and entity names can
// be matched by plain substring tests.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// containsPhrase matches phrase on word boundaries within normalized
// text, so "it" never fires inside "quality".
func containsPhrase(norm, phrase string) bool {
	return strings.Contains(" "+norm+" ", " "+phrase+" ")
}

func matchesGroup(norm string, group triggerGroup) bool {
	for _, phrase := range group.phrases {
		if containsPhrase(norm, phrase) {
			return true
		}
	}
	return false
}

func detectChart(norm string) (bool, entity.ChartKind) {
	wants := false
	for _, verb := range chartVerbs {
		if containsPhrase(norm, verb) {
			wants = true
			break
		}
	}
	if !wants {
		return false, ""
	}
	for _, ck := range chartKinds {
		if containsPhrase(norm, ck.word) {
			return true, ck.kind
		}
	}
	return true, ""
}

func mentionsDefects(norm string) bool {
	for _, subject := range defectSubjects {
		if containsPhrase(norm, subject) {
			return true
		}
	}
	return false
}

func hasBackReference(norm string) bool {
	for _, ref := range backReferences {
		if containsPhrase(norm, ref) {
			return true
		}
	}
	return false
}

// matchEntity finds known identifier values mentioned in the text by
// case-insensitive substring match; on ambiguity the longest matching
// value wins.
func matchEntity(norm string, entities []string) string {
	var best string
	var bestLen int
	for _, name := range entities {
		entNorm := Normalize(name)
		if entNorm == "" || !containsPhrase(norm, entNorm) {
			continue
		}
		if len(entNorm) > bestLen {
			best = name
			bestLen = len(entNorm)
		}
	}
	return best
}

// extractCandidate captures a literal entity reference ("... for
// WIDGET-X") that matched no known identifier value, so the caller
// can answer with an unknown-entity suggestion instead of a generic
// fallback.
func extractCandidate(norm string) string {
	m := candidateRe.FindStringSubmatch(norm)
	if m == nil {
		return ""
	}
	cand := strings.TrimSpace(m[1])
	cand = strings.TrimPrefix(cand, "the ")
	cand = strings.TrimPrefix(cand, "part ")
	if cand == "" || mentionsDefects(cand) {
		return ""
	}
	return cand
}

func extractCount(norm string) (int, bool) {
	if m := topNRe.FindStringSubmatch(norm); m != nil {
		if n := atoiPositive(m[1]); n > 0 {
			return n, true
		}
	}
	if m := nMostRe.FindStringSubmatch(norm); m != nil {
		if n := atoiPositive(m[1]); n > 0 {
			return n, true
		}
	}
	return entity.DefaultTopN, false
}

func atoiPositive(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// extractTimeWindow recognizes "<month name> <year>" and returns the
// inclusive calendar window of that month.
func extractTimeWindow(norm string) *entity.DateRange {
	m := monthYearRe.FindStringSubmatch(norm)
	if m == nil {
		return nil
	}
	year := atoiPositive(m[2])
	month := monthNumbers[m[1]]

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return &entity.DateRange{From: from, To: to}
}
