// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing listening history and generating playlists:
//  1. [PeriodListView] : Browse the two-month windows of the cached history
//  2. [TopListView] : Preview a window's most played tracks
//  3. [ConfirmView] : Confirm playlist generation
//  4. [GenerateView] : Monitor real-time progress updates
//  5. [ResultView] : Display the generated playlist summary
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the Engine, providing non-blocking status reporting during generation.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
