// Package i18n holds the locale-aware helpers used for user-facing lists.
package i18n

import (
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Locale is the language of every user-facing text.
var Locale = language.French

// A collate.Collator keeps internal buffers and is not safe for concurrent use.
var (
	mu       sync.Mutex
	collator = collate.New(Locale, collate.IgnoreCase)
)

// SortStrings returns a sorted copy of values in French collation order.
func SortStrings(values []string) []string {
	out := slices.Clone(values)
	mu.Lock()
	defer mu.Unlock()
	collator.SortStrings(out)
	return out
}

// Compare compares a and b in French collation order.
func Compare(a, b string) int {
	mu.Lock()
	defer mu.Unlock()
	return collator.CompareString(a, b)
}
