package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchHistory Phase = iota
	CountPlays
	ResolveTracks
	CreatePlaylist
	SortTracks
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case FetchHistory:
		return "fetch_history"
	case CountPlays:
		return "count_plays"
	case ResolveTracks:
		return "resolve_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case SortTracks:
		return "sort_tracks"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func fetchHistoryUpdate(user string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching listening history for %s...", user),
	}
}

func countPlaysUpdate(period string, distinct int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CountPlays,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s: %d distinct tracks played", period, distinct),
	}
}

func resolveTrackUpdate(step, total int, artist, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, artist, title),
	}
}

func resolveFailedUpdate(step, total int, artist, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s (no match)", step, total, artist, title),
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist: %s", name),
	}
}

func skipPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist exists, skipping: %s", name),
	}
}

func sortTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SortTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ordering %d tracks by tempo...", count),
	}
}

func addTracksUpdate(name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %s (%d tracks)", name, count),
	}
}
