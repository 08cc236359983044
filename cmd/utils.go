package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/zen-downloader/zen/internal/engine/types"
)

// readClipboard is replaced in tests.
var readClipboard = clipboard.ReadAll

var errNoURL = errors.New("no URL given")

// resolveURLArg returns the URL argument, or the clipboard content when no
// argument was given and the clipboard is allowed.
func resolveURLArg(args []string, useClipboard bool) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if !useClipboard {
		return "", errNoURL
	}
	text, err := readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	// first non-empty line
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%w: clipboard is empty", errNoURL)
}

// readURLsFromFile reads URLs from a file, one per line. Blank lines and
// lines starting with # are skipped.
func readURLsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	scanner := bufio.NewScanner(file)

	// Increase buffer size for long URLs (default is 64KB, increase to 1MB)
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, maxCapacity), maxCapacity)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return urls, nil
}

// resolveTaskID resolves a task id prefix against the queue snapshot.
// An unknown prefix is returned unchanged so the server reports it.
func resolveTaskID(partialID string, snap types.QueueSnapshot) (string, error) {
	var matches []string
	for _, t := range snap.Queue {
		if t.ID == partialID {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, partialID) {
			matches = append(matches, t.ID)
		}
	}

	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous ID prefix '%s' matches %d tasks", partialID, len(matches))
	}
	return partialID, nil
}

// parseIndexList parses "1,3,5-7" into zero-based indexes. Input is 1-based.
func parseIndexList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start < 1 {
			return nil, fmt.Errorf("invalid index %q", part)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}
		for i := start; i <= end; i++ {
			out = append(out, i-1)
		}
	}
	return out, nil
}

// statusLabel renders a task status with progress for tables.
func statusLabel(t types.Task) string {
	switch {
	case t.Status == types.StatusDownloading:
		label := fmt.Sprintf("downloading %.0f%%", t.Progress)
		if t.Speed != "" {
			label += " " + t.Speed
		}
		return label
	case t.Status == types.StatusError && t.Error != "":
		return "error: " + t.Error
	}
	return string(t.Status)
}

func taskLabel(t types.Task) string {
	switch {
	case t.Title != "":
		return t.Title
	case t.Filename != "":
		return t.Filename
	}
	return t.URL
}
