package history

import (
	"encoding/json"
	"testing"
)

func TestEventUnmarshalArtistShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"extended artist object",
			`{"name":"Song","artist":{"name":"Band"},"album":{"#text":"LP"},"date":{"uts":"1700000000"}}`,
			"Band",
		},
		{
			"plain artist text",
			`{"name":"Song","artist":{"#text":"Band"},"album":{"#text":"LP"},"date":{"uts":"1700000000"}}`,
			"Band",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Event
			if err := json.Unmarshal([]byte(tt.raw), &e); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if e.Artist != tt.want {
				t.Errorf("Artist = %q, want %q", e.Artist, tt.want)
			}
			if e.Timestamp != 1700000000 {
				t.Errorf("Timestamp = %d, want 1700000000", e.Timestamp)
			}
			if !e.Valid() {
				t.Error("Valid() = false for a well-formed event")
			}
		})
	}
}

func TestEventUnmarshalMissingDate(t *testing.T) {
	var e Event
	raw := `{"name":"Song","artist":{"name":"Band"},"album":{"#text":""}}`
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if e.Timestamp != 0 {
		t.Errorf("Timestamp = %d, want 0", e.Timestamp)
	}
	if e.Valid() {
		t.Error("Valid() = true for an event without a timestamp")
	}
}

func TestEventRoundTrip(t *testing.T) {
	orig := Event{Title: "Song", Artist: "Band", Album: "LP", Timestamp: 1700000000}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != orig {
		t.Errorf("round trip changed event: %+v vs %+v", got, orig)
	}
}

func TestEventKey(t *testing.T) {
	e := Event{Title: "Song", Artist: "Band", Album: "LP", Timestamp: 1}

	if k := e.Key(false); k.Album != "LP" {
		t.Errorf("Key(false).Album = %q, want LP", k.Album)
	}
	if k := e.Key(true); k.Album != "" {
		t.Errorf("Key(true).Album = %q, want empty", k.Album)
	}
}
