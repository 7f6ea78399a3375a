package history

import (
	"context"
	"testing"
	"time"
)

// ev builds a descending-order test history entry.
func ev(title, artist, album string, ts int64) Event {
	return Event{Title: title, Artist: artist, Album: album, Timestamp: ts}
}

func TestSearchDescending(t *testing.T) {
	events := []Event{
		ev("a", "x", "", 500),
		ev("b", "x", "", 400),
		ev("c", "x", "", 300),
		ev("d", "x", "", 200),
		ev("e", "x", "", 100),
	}

	tests := []struct {
		name string
		x    int64
		want int
	}{
		{"above newest", 600, 0},
		{"equal to newest", 500, 1},
		{"interior value", 300, 3},
		{"between values", 250, 3},
		{"equal to oldest", 100, 5},
		{"below oldest", 50, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := searchDescending(events, tt.x); got != tt.want {
				t.Errorf("searchDescending(%d) = %d, want %d", tt.x, got, tt.want)
			}
		})
	}
}

func TestCountRangeBoundaries(t *testing.T) {
	events := []Event{
		ev("a", "x", "", 500),
		ev("b", "x", "", 400),
		ev("a", "x", "", 300),
		ev("c", "x", "", 200),
		ev("a", "x", "", 100),
	}

	tests := []struct {
		name         string
		since, until int64
		wantTotal    int
	}{
		{"full range", 0, UnboundedFuture, 5},
		{"half-open upper bound excludes until", 100, 500, 4},
		{"lower bound inclusive", 300, 501, 3},
		{"empty interior range", 201, 300, 0},
		{"empty when since equals until", 300, 300, 0},
		{"since after newest", 600, UnboundedFuture, 0},
		{"until before oldest", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter, skipped := CountRange(events, tt.since, tt.until, false)
			if skipped != 0 {
				t.Fatalf("skipped = %d, want 0", skipped)
			}
			total := 0
			for _, e := range counter.MostCommon() {
				total += e.Count
			}
			if total != tt.wantTotal {
				t.Errorf("counted %d events, want %d", total, tt.wantTotal)
			}
		})
	}
}

func TestCountRangeEmptyHistory(t *testing.T) {
	counter, skipped := CountRange(nil, 0, UnboundedFuture, false)
	if counter.Len() != 0 || skipped != 0 {
		t.Errorf("expected empty counter, got %d identities, %d skipped", counter.Len(), skipped)
	}
}

func TestCountRangeSkipsMalformed(t *testing.T) {
	events := []Event{
		ev("a", "x", "", 500),
		ev("", "x", "", 400),  // no title
		ev("b", "", "", 300),  // no artist
		ev("c", "x", "", 200),
	}

	counter, skipped := CountRange(events, 0, UnboundedFuture, false)
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if counter.Len() != 2 {
		t.Errorf("Len() = %d, want 2", counter.Len())
	}
}

func TestCountRangeIgnoreAlbum(t *testing.T) {
	events := []Event{
		ev("a", "x", "album one", 500),
		ev("a", "x", "album two", 400),
	}

	counter, _ := CountRange(events, 0, UnboundedFuture, false)
	if counter.Len() != 2 {
		t.Errorf("with album: Len() = %d, want 2", counter.Len())
	}

	counter, _ = CountRange(events, 0, UnboundedFuture, true)
	if counter.Len() != 1 {
		t.Errorf("ignoring album: Len() = %d, want 1", counter.Len())
	}
	if got := counter.Count(Key{Title: "a", Artist: "x"}); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestMostCommonTieOrder(t *testing.T) {
	c := NewCounter()
	c.Add(Key{Title: "first", Artist: "x"})
	c.Add(Key{Title: "second", Artist: "x"})
	c.Add(Key{Title: "third", Artist: "x"})
	c.Add(Key{Title: "third", Artist: "x"})

	entries := c.MostCommon()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Key.Title != "third" || entries[0].Count != 2 {
		t.Errorf("entries[0] = %+v, want third with 2", entries[0])
	}
	// Equal counts keep insertion order.
	if entries[1].Key.Title != "first" || entries[2].Key.Title != "second" {
		t.Errorf("tie order = %s, %s; want first, second", entries[1].Key.Title, entries[2].Key.Title)
	}
}

func TestBimonthRange(t *testing.T) {
	jst := time.FixedZone("UTC+9", 9*60*60)

	since, until := BimonthRange(2024, time.January, jst)
	wantSince := time.Date(2024, time.January, 1, 0, 0, 0, 0, jst).Unix()
	wantUntil := time.Date(2024, time.March, 1, 0, 0, 0, 0, jst).Unix()
	if since != wantSince || until != wantUntil {
		t.Errorf("BimonthRange = (%d, %d), want (%d, %d)", since, until, wantSince, wantUntil)
	}

	// Window spanning a year boundary.
	since, until = BimonthRange(2024, time.November, jst)
	wantUntil = time.Date(2025, time.January, 1, 0, 0, 0, 0, jst).Unix()
	if until != wantUntil {
		t.Errorf("November window ends at %d, want %d", until, wantUntil)
	}
}

func TestCounterForMonth(t *testing.T) {
	jst := time.FixedZone("UTC+9", 9*60*60)
	feb1 := time.Date(2024, time.February, 1, 0, 0, 0, 0, jst).Unix()
	jan31 := time.Date(2024, time.January, 31, 23, 59, 0, 0, jst).Unix()

	cache := NewCache(t.TempDir(), nil)
	events := []Event{
		ev("a", "x", "", feb1),
		ev("a", "x", "", jan31),
		ev("b", "y", "", jan31-3600),
	}
	if err := cache.Write("alice", events); err != nil {
		t.Fatalf("Write: %v", err)
	}
	svc := NewService(&mockFetcher{}, cache, nil)
	ctx := context.Background()

	counter, err := svc.CounterForMonth(ctx, "alice", 2024, time.January, jst, CountOpts{})
	if err != nil {
		t.Fatalf("CounterForMonth: %v", err)
	}
	if counter.Len() != 2 {
		t.Errorf("January Len() = %d, want 2", counter.Len())
	}
	if got := counter.Count(Key{Title: "a", Artist: "x"}); got != 1 {
		t.Errorf("January count for a = %d, want 1 (midnight Feb 1 play excluded)", got)
	}

	counter, err = svc.CounterForMonth(ctx, "alice", 2024, time.February, jst, CountOpts{})
	if err != nil {
		t.Fatalf("CounterForMonth: %v", err)
	}
	if counter.Len() != 1 || counter.Count(Key{Title: "a", Artist: "x"}) != 1 {
		t.Errorf("February counter = %+v, want only a's Feb 1 play", counter.MostCommon())
	}

	// The two-month variant spans the same boundary.
	counter, err = svc.CounterForBimonth(ctx, "alice", 2024, time.January, jst, CountOpts{})
	if err != nil {
		t.Fatalf("CounterForBimonth: %v", err)
	}
	if got := counter.Count(Key{Title: "a", Artist: "x"}); got != 2 {
		t.Errorf("Jan-Feb count for a = %d, want 2", got)
	}
}

func TestBimonthCounting(t *testing.T) {
	jst := time.FixedZone("UTC+9", 9*60*60)
	jan15 := time.Date(2024, time.January, 15, 12, 0, 0, 0, jst).Unix()
	feb20 := time.Date(2024, time.February, 20, 12, 0, 0, 0, jst).Unix()
	mar5 := time.Date(2024, time.March, 5, 12, 0, 0, 0, jst).Unix()

	events := []Event{
		ev("a", "x", "", mar5),
		ev("b", "y", "", feb20),
		ev("a", "x", "", jan15),
	}

	since, until := BimonthRange(2024, time.January, jst)
	counter, _ := CountRange(events, since, until, true)

	if got := counter.Count(Key{Title: "a", Artist: "x"}); got != 1 {
		t.Errorf("Jan-Feb count for a = %d, want 1 (March play excluded)", got)
	}
	if got := counter.Count(Key{Title: "b", Artist: "y"}); got != 1 {
		t.Errorf("Jan-Feb count for b = %d, want 1", got)
	}

	since, until = BimonthRange(2024, time.March, jst)
	counter, _ = CountRange(events, since, until, true)
	if got := counter.Count(Key{Title: "a", Artist: "x"}); got != 1 {
		t.Errorf("Mar-Apr count for a = %d, want 1", got)
	}
	if counter.Len() != 1 {
		t.Errorf("Mar-Apr Len() = %d, want 1", counter.Len())
	}
}
