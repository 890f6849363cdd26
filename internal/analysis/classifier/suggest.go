package classifier

import (
	"sort"
)

// Suggest returns up to max known entity names closest to the query
// by Levenshtein distance over normalized forms. Used to build the
// "did you mean" part of unknown-entity replies.
func Suggest(query string, entities []string, max int) []string {
	queryNorm := Normalize(query)
	if queryNorm == "" || len(entities) == 0 || max <= 0 {
		return nil
	}

	type scored struct {
		name string
		dist int
	}
	ranked := make([]scored, 0, len(entities))
	for _, name := range entities {
		ranked = append(ranked, scored{
			name: name,
			dist: levenshteinDistance(queryNorm, Normalize(name)),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].dist < ranked[j].dist
	})

	if max > len(ranked) {
		max = len(ranked)
	}
	out := make([]string, 0, max)
	for _, s := range ranked[:max] {
		// A distance beyond the query length means nothing in
		// common worth suggesting.
		if s.dist > len(queryNorm) {
			break
		}
		out = append(out, s.name)
	}
	return out
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}
