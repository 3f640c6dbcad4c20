package reference

// InjectMarkers tags catalog name occurrences in text. See Matcher.Inject.
func InjectMarkers(text string, items []Item) string {
	return Compile(items).Inject(text)
}

// FallbackExtractIDs finds catalog items by normalized name. See Matcher.Fallback.
func FallbackExtractIDs(text string, items []Item) []int64 {
	return Compile(items).Fallback(text)
}

// Resolve strips, tags, extracts and merges catalog references in raw model output.
// Callers resolving many replies against the same snapshot should Compile once and
// reuse the Matcher.
func Resolve(raw string, items []Item) Result {
	return Compile(items).Resolve(raw)
}
