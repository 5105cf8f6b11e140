// internal/utils/utils.go
package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\s]+`)
	htmlTags         = regexp.MustCompile(`<[^>]*>`)
)

// ExtractDomain extracts the host from a URL
func ExtractDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}

// IsValidURL checks if a string is an absolute URL
func IsValidURL(str string) bool {
	u, err := url.Parse(str)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// CleanFileName replaces characters that are unsafe in file names
func CleanFileName(name string) string {
	cleaned := invalidFileChars.ReplaceAllString(strings.TrimSpace(name), "_")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return "unnamed"
	}
	return strings.ToLower(cleaned)
}

// TruncateString shortens s to maxLen runes, marking the cut with "..."
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// StripHTMLTags removes markup left in search snippets
func StripHTMLTags(s string) string {
	return htmlTags.ReplaceAllString(s, "")
}

// FormatDuration renders a duration with a unit suited to its size
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// GenerateOutputFileName builds "<sector>_<region>_<timestamp>.<ext>"
func GenerateOutputFileName(region, sector, ext string) string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", CleanFileName(sector), CleanFileName(region), timestamp, strings.TrimPrefix(ext, "."))
}
