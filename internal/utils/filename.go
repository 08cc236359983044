package utils

import (
	"path/filepath"
	"strings"
)

// DefaultFilename is used when neither the push channel nor the response
// header names the artifact.
const DefaultFilename = "download.mp4"

// SanitizeFilename strips directory components and characters that are not
// valid in file names on common filesystems.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))

	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '|', '?', '*':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)

	name = strings.Trim(name, ". ")
	if name == "" || name == "/" {
		return ""
	}
	return name
}

// PickFilename returns the first usable candidate after sanitizing, falling
// back to DefaultFilename.
func PickFilename(candidates ...string) string {
	for _, c := range candidates {
		if clean := SanitizeFilename(c); clean != "" {
			return clean
		}
	}
	return DefaultFilename
}
