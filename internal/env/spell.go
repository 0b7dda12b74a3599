package env

import "github.com/agnivade/levenshtein"

const maxSuggestionDistance = 2

// didYouMean returns the closest candidate within maxSuggestionDistance
// edits of name, or "". Ties go to the earliest candidate.
func didYouMean(name string, candidates []string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
