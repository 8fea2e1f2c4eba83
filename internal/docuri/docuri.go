// Package docuri converts between document URIs (the identifiers every
// analyzer method takes, spec §3) and local filesystem paths.
package docuri

import (
	"net/url"
	"strings"
)

// ToFilePath extracts the filesystem path portion of a file:// document
// URI, stripping query parameters. Returns the input unchanged if it does
// not parse as a URL, so callers that were already passing a bare path
// keep working.
func ToFilePath(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	if parsed.Scheme != "" && parsed.Scheme != "file" {
		return uri
	}
	if parsed.Path == "" {
		return uri
	}
	return parsed.Path
}

// FromFilePath builds a file:// document URI from a filesystem path.
func FromFilePath(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}
