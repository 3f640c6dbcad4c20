package reference

import (
	"regexp"
	"strconv"
)

var markerRe = regexp.MustCompile(`\[ID:(\d+)\]`)

// ExtractIDs returns the id of every [ID:<n>] marker in text, in order of appearance.
// Duplicates are kept; values that do not fit an int64 are skipped.
func ExtractIDs(text string) []int64 {
	matches := markerRe.FindAllStringSubmatch(text, -1)
	ids := make([]int64, 0, len(matches))
	for _, match := range matches {
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// DedupeKeepFirst drops repeated ids while keeping the position of each first occurrence.
func DedupeKeepFirst(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func formatMarker(id int64) string {
	return "[ID:" + strconv.FormatInt(id, 10) + "]"
}
