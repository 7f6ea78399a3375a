package tasks

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/soracane/lastgen/internal/history"
)

// VariantRelease is one (artist, album) attribution of a scrobbled title.
type VariantRelease struct {
	Artist string
	Album  string
	Count  int
}

// Variant is a title scrobbled under more than one attribution, usually the
// same recording tagged against different releases.
type Variant struct {
	Title    string
	Releases []VariantRelease
}

// FindVariants scans a history for titles attributed to multiple
// (artist, album) pairs. Titles are compared case-insensitively; each
// variant's releases are ordered by descending play count.
func FindVariants(events []history.Event) []Variant {
	type release struct{ artist, album string }

	counts := make(map[string]map[release]int)
	display := make(map[string]string)

	for _, e := range events {
		if !e.Valid() {
			continue
		}
		folded := strings.ToLower(e.Title)
		if counts[folded] == nil {
			counts[folded] = make(map[release]int)
			display[folded] = e.Title
		}
		counts[folded][release{e.Artist, e.Album}]++
	}

	var variants []Variant
	for folded, releases := range counts {
		if len(releases) < 2 {
			continue
		}

		v := Variant{Title: display[folded]}
		for r, n := range releases {
			v.Releases = append(v.Releases, VariantRelease{Artist: r.artist, Album: r.album, Count: n})
		}
		sort.Slice(v.Releases, func(i, j int) bool {
			if v.Releases[i].Count != v.Releases[j].Count {
				return v.Releases[i].Count > v.Releases[j].Count
			}
			return v.Releases[i].Album < v.Releases[j].Album
		})
		variants = append(variants, v)
	}

	sort.Slice(variants, func(i, j int) bool { return variants[i].Title < variants[j].Title })
	return variants
}

// TitlePair is a pair of distinct titles judged near-identical.
type TitlePair struct {
	A, B       string
	Similarity float64
}

// SimilarTitles finds pairs of distinct scrobbled titles whose Jaro-Winkler
// similarity meets the threshold, catching remaster suffixes and punctuation
// drift that exact grouping misses. Pairs are ordered by descending similarity.
func SimilarTitles(events []history.Event, threshold float64) []TitlePair {
	seen := make(map[string]struct{})
	var titles []string
	for _, e := range events {
		folded := strings.ToLower(e.Title)
		if _, ok := seen[folded]; ok || e.Title == "" {
			continue
		}
		seen[folded] = struct{}{}
		titles = append(titles, e.Title)
	}
	sort.Strings(titles)

	metric := metrics.NewJaroWinkler()

	var pairs []TitlePair
	for i := 0; i < len(titles); i++ {
		for j := i + 1; j < len(titles); j++ {
			score := strutil.Similarity(titles[i], titles[j], metric)
			if score >= threshold && score < 1 {
				pairs = append(pairs, TitlePair{A: titles[i], B: titles[j], Similarity: score})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Similarity > pairs[j].Similarity })
	return pairs
}
