package domain

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Tag names a derived read model that an external cache must invalidate
// after a mutating operation.
type Tag string

// ProgressTag covers a user's progress view of one path.
func ProgressTag(userID uuid.UUID, pathID int64) Tag {
	return Tag(fmt.Sprintf("user:%s:progress:path:%d", userID, pathID))
}

// HeartsTag covers a user's hearts on one path.
func HeartsTag(userID uuid.UUID, pathID int64) Tag {
	return Tag(fmt.Sprintf("user:%s:hearts:path:%d", userID, pathID))
}

// StatsTag covers a user's XP and streak statistics.
func StatsTag(userID uuid.UUID) Tag {
	return Tag(fmt.Sprintf("user:%s:stats", userID))
}

// ReviewsTag covers a user's due and struggling card lists.
func ReviewsTag(userID uuid.UUID) Tag {
	return Tag(fmt.Sprintf("user:%s:reviews", userID))
}

// TagSet collects tags without duplicates.
type TagSet map[Tag]struct{}

// Add inserts tags into the set.
func (s TagSet) Add(tags ...Tag) {
	for _, t := range tags {
		s[t] = struct{}{}
	}
}

// Sorted returns the tags in a stable order.
func (s TagSet) Sorted() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
