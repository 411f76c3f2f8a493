package coerce

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	slugInvalid   = regexp.MustCompile(`[^a-z0-9]+`)
	driveFilePath = regexp.MustCompile(`(?i)drive\.google\.com/file/d/([^/]+)/`)
	driveHost     = regexp.MustCompile(`(?i)drive\.google\.com`)
	driveUC       = regexp.MustCompile(`(?i)drive\.google\.com/uc`)
)

// Slugify lowercases s and collapses every run of other characters into a single hyphen.
func Slugify(s string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}

// TrimQuotes removes one leading and one trailing double quote.
func TrimQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

const driveDownload = "https://drive.google.com/uc?export=download&id="

// DriveDownloadURL rewrites Google Drive share links into direct download links.
// Anything it does not recognise is returned unchanged.
func DriveDownloadURL(raw string) string {
	if raw == "" {
		return raw
	}
	if m := driveFilePath.FindStringSubmatch(raw); len(m) == 2 && m[1] != "" {
		return driveDownload + m[1]
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if id := u.Query().Get("id"); id != "" && driveHost.MatchString(u.Hostname()) {
		return driveDownload + id
	}
	if driveUC.MatchString(raw) {
		q := u.Query()
		q.Set("export", "download")
		u.RawQuery = q.Encode()
		return u.String()
	}
	return raw
}
