// Package reference recovers which catalog products an assistant reply talks about.
//
// Model output is never trusted to carry identifiers. Any marker-like text it emits is
// stripped, product names are located in the cleaned text and tagged with transient
// [ID:<n>] markers, the markers are collected, and a looser normalized-name scan fills in
// whatever the tagging pass missed. Markers never leave this package.
package reference

// Item is the part of a catalog product the resolver needs. A snapshot of items is
// read-only for the duration of a call.
type Item struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Result is the outcome of resolving one assistant reply.
type Result struct {
	// DisplayText is safe to show to the user: it contains no reference markers.
	DisplayText string `json:"display_text"`
	// ReferencedIDs lists catalog ids in first-mention order, without duplicates.
	ReferencedIDs []int64 `json:"referenced_ids"`
	// FallbackOnly holds the ids that only the normalized-name scan found.
	FallbackOnly []int64 `json:"-"`
}
