package tui

import (
	"net/url"
	"strings"
)

// ParseDroppedPaths splits text pasted by a terminal drag-and-drop into
// paths. It understands quoting, backslash-escaped spaces and file:// URLs.
func ParseDroppedPaths(text string) []string {
	var paths []string
	var cur strings.Builder
	var quote rune
	escaped := false

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		p := cur.String()
		cur.Reset()
		if strings.HasPrefix(p, "file://") {
			if u, err := url.Parse(p); err == nil {
				p = u.Path
			}
		}
		paths = append(paths, p)
	}

	for _, r := range text {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return paths
}
