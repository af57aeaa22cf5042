package trace

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeBasename derives a filesystem-safe name from a URL: scheme stripped,
// host kept, path flattened. Distinct URLs that sanitize identically are
// disambiguated by source and sample index in Filename.
func SafeBasename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return invalidFilenameChars.ReplaceAllString(raw, "_")
	}
	host := invalidFilenameChars.ReplaceAllString(u.Hostname(), "_")
	p := strings.Trim(u.EscapedPath(), "/")
	if p == "" {
		return host
	}
	return fmt.Sprintf("%s_%s", host, invalidFilenameChars.ReplaceAllString(p, "_"))
}

// Filename names one trace sample deterministically. Index is 1-based.
func Filename(rawURL string, source Source, index int) string {
	return fmt.Sprintf("%s-%s-%d.trace.json", SafeBasename(rawURL), source, index)
}
