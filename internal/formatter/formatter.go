// package formatter provides functions to export play counts and variant
// reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/soracane/lastgen/internal/history"
	"github.com/soracane/lastgen/internal/tasks"
)

// CountsToCSV converts counter entries to CSV format with columns: Rank, Title, Artist, Album, Plays
func CountsToCSV(entries []history.Entry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "Title", "Artist", "Album", "Plays"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, entry := range entries {
		record := []string{
			strconv.Itoa(i + 1),
			entry.Key.Title,
			entry.Key.Artist,
			entry.Key.Album,
			strconv.Itoa(entry.Count),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// CountsToMarkdown converts counter entries to a ranked Markdown report.
func CountsToMarkdown(title string, entries []history.Entry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Distinct tracks**: %d\n\n", len(entries)))

	buf.WriteString("## Most played\n\n")
	for i, entry := range entries {
		albumPart := ""
		if entry.Key.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", entry.Key.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s — %d plays\n", i+1, entry.Key.Artist, entry.Key.Title, albumPart, entry.Count))
	}

	return buf.Bytes(), nil
}

// CountsToText converts counter entries to plain text format
func CountsToText(title string, entries []history.Entry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s\n", title))
	buf.WriteString(fmt.Sprintf("Distinct tracks: %d\n\n", len(entries)))

	for i, entry := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s - %s (%d)\n", i+1, entry.Key.Artist, entry.Key.Title, entry.Count))
	}

	return buf.Bytes(), nil
}

// VariantsToText converts a variant report to plain text format
func VariantsToText(variants []tasks.Variant) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Titles with multiple attributions: %d\n\n", len(variants)))

	for _, v := range variants {
		buf.WriteString(fmt.Sprintf("%s\n", v.Title))
		for _, r := range v.Releases {
			album := r.Album
			if album == "" {
				album = "(no album)"
			}
			buf.WriteString(fmt.Sprintf("  %s / %s: %d plays\n", r.Artist, album, r.Count))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// VariantsToCSV converts a variant report to CSV with one row per attribution.
func VariantsToCSV(variants []tasks.Variant) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artist", "Album", "Plays"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, v := range variants {
		for _, r := range v.Releases {
			record := []string{v.Title, r.Artist, r.Album, strconv.Itoa(r.Count)}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFile writes exported data to the given path, creating parent
// directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
