// package history owns the local scrobble cache and windowed play-count queries over it.
//
// The durable representation is one JSON file per user holding the full
// listening history newest-first, in the Last.fm wire shape.
package history

import (
	"encoding/json"
	"strconv"
)

// Event is one playback record. Immutable once created.
type Event struct {
	Title     string
	Artist    string
	Album     string // may be empty
	Timestamp int64  // seconds since epoch
}

// wireEvent is the persisted/remote JSON shape of an event.
//
// Artist carries "name" when the recent-tracks call runs in extended mode and
// "#text" otherwise; both are accepted on read, "name" is written.
type wireEvent struct {
	Name   string `json:"name"`
	Artist struct {
		Name string `json:"name,omitempty"`
		Text string `json:"#text,omitempty"`
	} `json:"artist"`
	Album struct {
		Text string `json:"#text"`
	} `json:"album"`
	Date *struct {
		UTS json.Number `json:"uts"`
	} `json:"date,omitempty"`
}

// MarshalJSON encodes the event in the Last.fm wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	var w wireEvent
	w.Name = e.Title
	w.Artist.Name = e.Artist
	w.Album.Text = e.Album
	w.Date = &struct {
		UTS json.Number `json:"uts"`
	}{UTS: json.Number(strconv.FormatInt(e.Timestamp, 10))}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an event from the Last.fm wire shape.
//
// Events without a date (e.g. a now-playing entry) decode with Timestamp 0;
// callers treat those as malformed and skip them.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	e.Title = w.Name
	e.Artist = w.Artist.Name
	if e.Artist == "" {
		e.Artist = w.Artist.Text
	}
	e.Album = w.Album.Text
	e.Timestamp = 0
	if w.Date != nil {
		if ts, err := w.Date.UTS.Int64(); err == nil {
			e.Timestamp = ts
		}
	}
	return nil
}

// Valid reports whether the event carries the minimum required fields.
func (e Event) Valid() bool {
	return e.Title != "" && e.Artist != "" && e.Timestamp > 0
}

// Key returns the aggregation identity of the event.
// With ignoreAlbum set, events are identified by (title, artist) alone.
func (e Event) Key(ignoreAlbum bool) Key {
	k := Key{Title: e.Title, Artist: e.Artist}
	if !ignoreAlbum {
		k.Album = e.Album
	}
	return k
}
