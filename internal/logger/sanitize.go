package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxLoggedPathLength caps URL paths in log lines so a hostile client
// cannot blow up log volume with an enormous request path.
const maxLoggedPathLength = 500

// SanitizePath makes a URL path safe to log: valid UTF-8, no control
// characters, bounded length.
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}
	if !utf8.ValidString(path) {
		path = strings.ToValidUTF8(path, "")
	}

	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		if unicode.IsPrint(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	path = b.String()

	if len(path) > maxLoggedPathLength {
		path = path[:maxLoggedPathLength] + "..."
	}
	return path
}
