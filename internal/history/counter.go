package history

import (
	"context"
	"math"
	"sort"
	"time"
)

// UnboundedFuture is the sentinel upper bound for an open-ended range query.
const UnboundedFuture int64 = math.MaxInt64

// Key is the aggregation identity of an event.
type Key struct {
	Title  string
	Artist string
	Album  string // empty when counting with ignoreAlbum
}

// Entry pairs an identity with its occurrence count.
type Entry struct {
	Key   Key
	Count int
}

// Counter counts event occurrences per identity.
//
// Iteration order for equal counts preserves first-insertion order, which is
// descending-time scan order for counters built from a history slice.
type Counter struct {
	counts map[Key]int
	order  []Key
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[Key]int)}
}

// Add increments the count for the given identity.
func (c *Counter) Add(k Key) {
	if _, seen := c.counts[k]; !seen {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

// Count returns the occurrence count for the identity, zero if absent.
func (c *Counter) Count(k Key) int {
	return c.counts[k]
}

// Len returns the number of distinct identities.
func (c *Counter) Len() int {
	return len(c.order)
}

// MostCommon returns entries ordered by descending count; identities with
// equal counts keep their first-insertion order.
func (c *Counter) MostCommon() []Entry {
	entries := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		entries = append(entries, Entry{Key: k, Count: c.counts[k]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return entries
}

// searchDescending returns the leftmost index whose timestamp is strictly
// less than x. The history is sorted descending by timestamp, so this is the
// mirror of an ascending lower-bound search, done in O(log n) comparisons.
func searchDescending(events []Event, x int64) int {
	return sort.Search(len(events), func(i int) bool {
		return events[i].Timestamp < x
	})
}

// CountRange counts occurrences of each distinct identity among the events
// with since <= timestamp < until. The events slice must be sorted descending
// by timestamp. Returns the counter and the number of malformed events skipped.
func CountRange(events []Event, since, until int64, ignoreAlbum bool) (*Counter, int) {
	sinceIdx := searchDescending(events, since)
	untilIdx := searchDescending(events, until)

	counter := NewCounter()
	skipped := 0

	for _, e := range events[untilIdx:sinceIdx] {
		if !e.Valid() {
			skipped++
			continue
		}
		counter.Add(e.Key(ignoreAlbum))
	}

	return counter, skipped
}

// CountOpts control a counter query.
type CountOpts struct {
	IgnoreAlbum bool
	Update      bool // refresh the cache before counting
	Refetch     bool // discard and refetch the entire history first
}

// Counter answers "count occurrences of each identity within [since, until)"
// against the user's (possibly refreshed) history. Zero bounds default to the
// beginning of time and [UnboundedFuture] respectively.
func (s *Service) Counter(ctx context.Context, user string, since, until int64, opts CountOpts) (*Counter, error) {
	events, err := s.History(ctx, user, opts.Update, opts.Refetch)
	if err != nil {
		return nil, err
	}

	if until == 0 {
		until = UnboundedFuture
	}

	counter, skipped := CountRange(events, since, until, opts.IgnoreAlbum)
	if skipped > 0 {
		s.logger.Warn("skipped malformed events", "user", user, "count", skipped)
	}

	return counter, nil
}

// MonthRange returns the [since, until) bounds of one calendar month in loc.
func MonthRange(year int, month time.Month, loc *time.Location) (int64, int64) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start.Unix(), start.AddDate(0, 1, 0).Unix()
}

// BimonthRange returns the [since, until) bounds of a two-calendar-month
// window starting at startMonth in loc.
func BimonthRange(year int, startMonth time.Month, loc *time.Location) (int64, int64) {
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, loc)
	return start.Unix(), start.AddDate(0, 2, 0).Unix()
}

// CounterForMonth counts plays within one calendar month.
func (s *Service) CounterForMonth(ctx context.Context, user string, year int, month time.Month, loc *time.Location, opts CountOpts) (*Counter, error) {
	since, until := MonthRange(year, month, loc)
	return s.Counter(ctx, user, since, until, opts)
}

// CounterForBimonth counts plays within a two-month window starting at startMonth.
func (s *Service) CounterForBimonth(ctx context.Context, user string, year int, startMonth time.Month, loc *time.Location, opts CountOpts) (*Counter, error) {
	since, until := BimonthRange(year, startMonth, loc)
	return s.Counter(ctx, user, since, until, opts)
}
