// Package idgen generates identifiers for messages produced inside the bot.
package idgen

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// NewSortableID returns a lexicographically time-ordered identifier.
func NewSortableID() string {
	return ulid.Make().String()
}

// TimeOf extracts the creation time from an identifier produced by
// NewSortableID.
func TimeOf(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
