package content

import (
	"math"
	"regexp"
	"sync"
)

// WordsPerMinute is the reading rate used by ReadingTime.
const WordsPerMinute = 200

// reWhitespace matches ASCII and Unicode space separators, including NBSP.
var reWhitespace = regexp.MustCompile(`[\s\v\p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)

// ReadingTime estimates the minutes needed to read content.
// Headings and body texts are split on whitespace runs; an empty string still
// counts as one token. No content at all yields zero.
func ReadingTime(groups []Group) int {
	if len(groups) == 0 {
		return 0
	}
	words := 0
	for _, g := range groups {
		words += countWords(g.Heading)
		for _, b := range g.Body {
			words += countWords(b.Text)
		}
	}
	return int(math.Ceil(float64(words) / WordsPerMinute))
}

func countWords(s string) int {
	return len(reWhitespace.Split(s, -1))
}

// ReadingTimes memoizes ReadingTime per post identity. A post is recomputed
// only when its uid or last publication date changes.
type ReadingTimes struct {
	mu      sync.Mutex
	minutes map[readingKey]int
}

type readingKey struct {
	uid     string
	version string
}

// NewReadingTimes creates an empty memo.
func NewReadingTimes() *ReadingTimes {
	return &ReadingTimes{minutes: make(map[readingKey]int)}
}

// Of returns the reading time of p, computing it at most once per identity.
func (r *ReadingTimes) Of(p Post) int {
	key := readingKey{uid: p.UID, version: p.LastPublicationDate}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.minutes[key]; ok {
		return m
	}
	m := ReadingTime(p.Data.Content)
	r.minutes[key] = m
	return m
}

// Forget drops every memoized entry for uid.
func (r *ReadingTimes) Forget(uid string) {
	r.mu.Lock()
	for k := range r.minutes {
		if k.uid == uid {
			delete(r.minutes, k)
		}
	}
	r.mu.Unlock()
}
