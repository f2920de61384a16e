// package formatter renders releases and the change ledger as plain text, CSV, Markdown, JSON or YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
	"github.com/goccy/go-yaml"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format in help order.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown}

// ParseFormat parses a format name. The empty string selects [FormatText]; "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	}
	if f := Format(s); slices.Contains(Formats, f) {
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Encode marshals v as JSON or YAML.
func Encode(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := shared.MarshalJSON(v, true)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a structured format", shared.ErrInvalidArgument, format)
	}
}

// ReleasesToCSV converts releases to CSV with columns: ID, Code, Title, Original, Year, Season, Type, Status,
// Episodes, Torrents, Rating, Updated
func ReleasesToCSV(releases []*models.Release) ([]byte, error) {
	rows := make([][]string, 0, len(releases))
	for _, r := range releases {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Code,
			r.Title,
			r.OriginalName(),
			r.Year,
			r.Season,
			r.Type,
			r.Status,
			strconv.Itoa(len(r.Playlist)),
			strconv.Itoa(len(r.Torrents)),
			strconv.Itoa(r.Rating),
			formatTimestamp(r.Timestamp),
		})
	}
	return writeCSV([]string{"ID", "Code", "Title", "Original", "Year", "Season", "Type", "Status", "Episodes", "Torrents", "Rating", "Updated"}, rows)
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range rows {
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

// ReleasesToMarkdown converts releases to a Markdown list under the given heading
func ReleasesToMarkdown(heading string, releases []*models.Release) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", heading))
	buf.WriteString(fmt.Sprintf("**Releases**: %d\n\n", len(releases)))

	for i, r := range releases {
		buf.WriteString(fmt.Sprintf("%d. **%s**", i+1, r.Title))
		if original := r.OriginalName(); original != r.Title {
			buf.WriteString(fmt.Sprintf(" (%s)", original))
		}
		buf.WriteString(fmt.Sprintf(" [%s]", releaseFacts(r)))
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ReleasesToText converts releases to one line each, prefixed with the release id
func ReleasesToText(releases []*models.Release) ([]byte, error) {
	var buf bytes.Buffer

	for _, r := range releases {
		buf.WriteString(fmt.Sprintf("%6d  %s", r.ID, r.Title))
		if original := r.OriginalName(); original != r.Title {
			buf.WriteString(fmt.Sprintf(" / %s", original))
		}
		buf.WriteString(fmt.Sprintf("  (%s)\n", releaseFacts(r)))
	}

	return buf.Bytes(), nil
}

// ReleaseDetail renders every field of a single release for display
func ReleaseDetail(r *models.Release) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s\n", r.Title))
	for _, name := range r.Names {
		if name != r.Title {
			buf.WriteString(fmt.Sprintf("  %s\n", name))
		}
	}
	buf.WriteString("\n")

	field := func(label, value string) {
		if value != "" {
			buf.WriteString(fmt.Sprintf("%-10s %s\n", label+":", value))
		}
	}
	field("ID", strconv.FormatInt(r.ID, 10))
	field("Code", r.Code)
	field("Type", r.Type)
	field("Status", r.Status)
	field("Year", strings.TrimSpace(r.Year+" "+r.Season))
	field("Series", r.Series)
	field("Genres", strings.Join(r.Genres, ", "))
	field("Voices", strings.Join(r.Voices, ", "))
	field("Rating", strconv.Itoa(r.Rating))
	field("Updated", formatTimestamp(r.Timestamp))
	if r.Blocked {
		field("Blocked", r.BlockedReason)
	}

	if r.Description != "" {
		buf.WriteString(fmt.Sprintf("\n%s\n", r.Description))
	}

	var hd, sd int
	for _, p := range r.Playlist {
		if p.HasHD() {
			hd++
		}
		if p.HasSD() {
			sd++
		}
	}
	buf.WriteString(fmt.Sprintf("\nEpisodes: %d", len(r.Playlist)))
	if hd > 0 || sd > 0 {
		buf.WriteString(fmt.Sprintf(" (HD %d, SD %d)", hd, sd))
	}
	buf.WriteString("\n")

	if len(r.Torrents) > 0 {
		buf.WriteString(fmt.Sprintf("\nTorrents: %d\n", len(r.Torrents)))
		for _, t := range r.Torrents {
			buf.WriteString(fmt.Sprintf("  - %s %s, %s, %d seeders\n", t.Series, t.Quality, shared.FormatSize(t.Size), t.Seeders))
		}
	}

	return buf.Bytes()
}

// FormatReleases renders releases in any supported format. The heading is used by Markdown only.
func FormatReleases(format Format, heading string, releases []*models.Release) ([]byte, error) {
	switch format {
	case FormatJSON, FormatYAML:
		if releases == nil {
			releases = []*models.Release{}
		}
		return Encode(format, releases)
	case FormatCSV:
		return ReleasesToCSV(releases)
	case FormatMarkdown:
		return ReleasesToMarkdown(heading, releases)
	default:
		return ReleasesToText(releases)
	}
}

// WriteExport writes data to path, creating parent directories. It returns the path written.
func WriteExport(path string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty output path", shared.ErrInvalidArgument)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

func releaseFacts(r *models.Release) string {
	parts := []string{}
	if year := strings.TrimSpace(r.Year); year != "" {
		parts = append(parts, year)
	}
	if r.Type != "" {
		parts = append(parts, r.Type)
	}
	if r.Status != "" {
		parts = append(parts, r.Status)
	}
	parts = append(parts, fmt.Sprintf("%d ep.", len(r.Playlist)))
	return strings.Join(parts, ", ")
}

func formatTimestamp(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04")
}
