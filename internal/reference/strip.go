package reference

import "regexp"

var (
	// [ID:12], (id #12), {ID 12], ... brackets need not pair up. The single space the
	// tagger puts before a marker goes with it.
	bracketMarkerRe = regexp.MustCompile(`(?i)[ \t]?[\[({]\s*ID[:#]?\s*\d+\s*[\])}]`)
	// ID:12 / ID#12 / ID 12 after start of text, whitespace or punctuation.
	bareMarkerRe = regexp.MustCompile(`(?i)(^|[\s\p{P}\p{S}])ID[:#]?\s*\d+`)

	repeatedSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
	trailingSpaceRe = regexp.MustCompile(`[ \t]+(\r?\n|$)`)
)

// StripMarkers removes every reference marker form from text and tidies the whitespace
// left behind. It is idempotent.
func StripMarkers(text string) string {
	if text == "" {
		return ""
	}
	// Removing one marker can splice a new one together ("[ID:[ID:1]2]"), so run to a
	// fixed point. Every replacement shrinks the text, which bounds the loop.
	for {
		next := stripOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func stripOnce(text string) string {
	// Brackets first, to a fixed point, so the bare pass never hollows out a marker the
	// bracket pass just spliced together.
	for {
		next := bracketMarkerRe.ReplaceAllString(text, "")
		if next == text {
			break
		}
		text = next
	}
	text = bareMarkerRe.ReplaceAllString(text, "${1}")
	text = repeatedSpaceRe.ReplaceAllString(text, " ")
	return trailingSpaceRe.ReplaceAllString(text, "${1}")
}
