package harvest

import "strings"

type queryKind int

const (
	kindCSS queryKind = iota
	kindXPath
)

// fieldQuery is one named extraction target resolved against the page HTML.
type fieldQuery struct {
	Name  string
	Query string
	Kind  queryKind
}

// defaultFieldName is used for bare spec entries without a "name=" prefix.
const defaultFieldName = "data"

// parseSelectorSpec splits a comma-separated spec of "name=query" entries.
// A bare query with no "=" gets the default field name. Only the first "="
// separates name from query so selectors like [attr="x"] survive when named.
func parseSelectorSpec(spec string, kind queryKind) []fieldQuery {
	var out []fieldQuery
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := defaultFieldName
		query := part
		if i := strings.Index(part, "="); i > 0 {
			candidate := strings.TrimSpace(part[:i])
			// names are plain identifiers; anything else is selector syntax
			if isFieldName(candidate) {
				name = candidate
				query = strings.TrimSpace(part[i+1:])
			}
		}
		if query == "" {
			continue
		}
		out = append(out, fieldQuery{Name: name, Query: query, Kind: kind})
	}
	return out
}

func isFieldName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// mergeFieldQueries combines the CSS and XPath specs, CSS entries first.
func mergeFieldQueries(cssSpec, xpathSpec string) []fieldQuery {
	out := parseSelectorSpec(cssSpec, kindCSS)
	return append(out, parseSelectorSpec(xpathSpec, kindXPath)...)
}
