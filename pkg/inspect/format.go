package inspect

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lepinkainen/preview-forge/pkg/preview"
)

// wrapText wraps text to the specified width, breaking at word boundaries when possible
func wrapText(text string, width int) string {
	if width <= 0 {
		width = 70
	}

	var result strings.Builder
	var line strings.Builder
	lineLen := 0

	words := strings.Fields(text)
	for i, word := range words {
		wordLen := len(word)

		// If adding this word would exceed width, start a new line
		if lineLen > 0 && lineLen+1+wordLen > width {
			result.WriteString(line.String())
			result.WriteString("\n")
			line.Reset()
			lineLen = 0
		}

		// Add space before word if not at start of line
		if lineLen > 0 {
			line.WriteString(" ")
			lineLen++
		}

		line.WriteString(word)
		lineLen += wordLen

		// Write the last line
		if i == len(words)-1 {
			result.WriteString(line.String())
		}
	}

	return result.String()
}

// FormatCompactListItem formats a single cached record in compact list format
// Example: " 1. [microlink     ] 2025-10-21T13:33:58+03:00  Post Title"
func FormatCompactListItem(index int, rec *preview.Record) string {
	source := string(rec.Source)
	if rec.IsCustom {
		source = source + "*"
	}

	title := rec.Title
	const maxTitleLength = 70
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength-3] + "..."
	}

	fetched := "never"
	if !rec.FetchedAt.IsZero() {
		fetched = rec.FetchedAt.Format(time.RFC3339)
	}

	return fmt.Sprintf("%2d. [%-17s] %s  %s", index+1, source, fetched, title)
}

// FormatDetailedRecord formats a single cached record with all metadata
func FormatDetailedRecord(rec *preview.Record) string {
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")
	b.WriteString(fmt.Sprintf("URL: %s\n", rec.URL))
	b.WriteString(fmt.Sprintf("Title: %s\n", rec.Title))

	if rec.Description != "" {
		wrapped := wrapText(rec.Description, 70)
		b.WriteString(fmt.Sprintf("Description:\n%s\n", wrapped))
	}

	if rec.Image != "" {
		b.WriteString(fmt.Sprintf("Image: %s\n", rec.Image))
	}

	b.WriteString(fmt.Sprintf("Site: %s | Source: %s\n", rec.SiteName, rec.Source))

	if rec.IsCustom {
		b.WriteString("Custom override: yes\n")
	}
	if rec.IsPlaceholder() {
		b.WriteString("Placeholder: yes\n")
	}

	if !rec.FetchedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Fetched: %s\n", formatTimeAgo(rec.FetchedAt)))
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// FormatJSONRecord renders a record exactly as the API would serve it.
func FormatJSONRecord(rec *preview.Record) string {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error encoding record: %s", err)
	}
	return string(data)
}

// formatTimeAgo formats a time.Time as a human-readable "X ago" string
func formatTimeAgo(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
