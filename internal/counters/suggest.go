package counters

import (
	"strings"

	lev "github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how different a suggestion may be.
const maxSuggestDistance = 3

// Suggest returns the known name closest to iface, or "" when nothing is close.
// Ties keep table order.
func Suggest(iface string, known []string) string {
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, k := range known {
		if k == iface {
			continue
		}
		d := lev.ComputeDistance(strings.ToLower(iface), strings.ToLower(k))
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
