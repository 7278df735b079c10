// Package export writes stored accounts as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/models"
)

// Format is an export file format
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat parses a format name, falling back to the file extension of path
func ParseFormat(name, path string) (Format, error) {
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	switch Format(strings.ToLower(name)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// Options control what gets exported
type Options struct {
	Format Format
	Filter models.FilterType
	Locale activity.Locale
	// Now anchors the relative dates of CSV rows
	Now time.Time
}

// Document is the JSON export layout
type Document struct {
	ExportedAt time.Time         `json:"exportedAt"`
	Filter     models.FilterType `json:"filter"`
	Count      int               `json:"count"`
	Accounts   []models.Account  `json:"accounts"`
}

var csvHeader = []string{
	"platform", "id", "username", "display_name", "profile_url",
	"last_post_date", "last_post", "is_inactive", "is_not_following_back", "is_following_you", "scanned_at",
}

// Write exports the filtered accounts to w and returns how many were written
func Write(w io.Writer, accounts []models.Account, opts Options) (int, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Filter == "" {
		opts.Filter = models.FilterAll
	}
	selected := models.Filter(accounts, opts.Filter)

	switch opts.Format {
	case FormatCSV:
		return len(selected), writeCSV(w, selected, opts)
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		doc := Document{ExportedAt: opts.Now.UTC(), Filter: opts.Filter, Count: len(selected), Accounts: selected}
		if err := enc.Encode(doc); err != nil {
			return 0, fmt.Errorf("failed to encode accounts: %w", err)
		}
		return len(selected), nil
	}
	return 0, fmt.Errorf("unsupported export format %q", opts.Format)
}

func writeCSV(w io.Writer, accounts []models.Account, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, a := range accounts {
		lastPost := ""
		if a.LastPostDate != nil {
			lastPost = a.LastPostDate.UTC().Format(time.RFC3339)
		}
		scanned := ""
		if !a.ScannedAt.IsZero() {
			scanned = a.ScannedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			string(a.Platform),
			a.ID,
			a.Username,
			a.DisplayName,
			a.ProfileURL,
			lastPost,
			activity.FormatRelative(a.LastPostDate, opts.Now, opts.Locale),
			strconv.FormatBool(a.IsInactive),
			strconv.FormatBool(a.IsNotFollowingBack),
			strconv.FormatBool(a.IsFollowingYou),
			scanned,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile exports to path atomically
func WriteFile(path string, accounts []models.Account, opts Options) (int, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := Write(tmp, accounts, opts)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to move export file: %w", err)
	}
	return n, nil
}
