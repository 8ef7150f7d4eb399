package calls

import (
	"strings"
	"time"
)

// Buckets is a point-in-time view over a user's calls. Classification is
// time-dependent: callers must re-run Classify per render/poll rather than
// caching buckets across evaluations.
type Buckets struct {
	Ended    []Call
	Upcoming []Call

	// Recordable is the set recordings are fetched for. Recordings only
	// exist for calls that already ended, so it equals Ended.
	Recordable []Call
}

// Classify partitions calls into ended/upcoming/recordable views at instant
// now. Input order does not matter and input records are never mutated.
// Malformed or missing optional fields degrade to exclusion, never to an
// error.
func Classify(in []Call, now time.Time) Buckets {
	var b Buckets
	for _, c := range in {
		if isEnded(c, now) {
			b.Ended = append(b.Ended, c)
		}
		if isUpcoming(c, now) {
			b.Upcoming = append(b.Upcoming, c)
		}
	}
	b.Recordable = b.Ended
	return b
}

// isEnded: explicitly ended, or the scheduled end instant has passed.
// An unparsable ends_at fails open (not ended).
func isEnded(c Call, now time.Time) bool {
	if c.Ended() {
		return true
	}
	if endsAt, ok := c.EndsAtTime(); ok {
		return endsAt.Before(now)
	}
	return false
}

// isUpcoming: not ended, carries a real description, and has a
// forward-looking end (or, lacking ends_at entirely, a forward-looking
// start). A present-but-unparsable ends_at excludes the call; there is no
// fallback to starts_at in that case.
func isUpcoming(c Call, now time.Time) bool {
	if c.Ended() {
		return false
	}
	if !hasRealDescription(c) {
		return false
	}
	if c.Custom.EndsAt != "" {
		endsAt, ok := c.EndsAtTime()
		return ok && endsAt.After(now)
	}
	if c.StartsAt != nil {
		return c.StartsAt.After(now)
	}
	return false
}

// hasRealDescription filters out instant/ad-hoc calls: those carry an empty
// or placeholder description and are not worth listing as upcoming.
func hasRealDescription(c Call) bool {
	d := c.Custom.Description
	if strings.TrimSpace(d) == "" {
		return false
	}
	return d != DescriptionInstant
}
