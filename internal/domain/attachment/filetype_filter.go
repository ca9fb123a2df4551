package attachment

import (
	"mime"
	"regexp"
	"strings"
)

// A filter is a comma separated list of file extensions (".png"), MIME types
// ("application/pdf") and the placeholders image/*, video/* and audio/*.
var (
	filterElement = `(?:\.[-\w.]+|[-\w.]+/[-\w.+]+|image/\*|video/\*|audio/\*)`
	filterPattern = regexp.MustCompile(`^` + filterElement + `(?:,\s*` + filterElement + `)*$`)
)

var wildcardAliases = map[string]string{
	"image":  "image/*",
	"image/": "image/*",
	"video":  "video/*",
	"video/": "video/*",
	"audio":  "audio/*",
	"audio/": "audio/*",
}

// ValidateFilterString checks that filter is a valid file type filter. The
// empty filter is valid and allows everything.
func ValidateFilterString(filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return filterPattern.MatchString(filter)
}

// NormalizeFilterString brings a user supplied filter into canonical form:
// lower case, no whitespace, a leading dot on bare extensions, "*.ext"
// converted to ".ext", "image"/"image/" converted to "image/*" and duplicates
// removed.
func NormalizeFilterString(filter string) string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, element := range strings.Split(filter, ",") {
		element = strings.ToLower(strings.TrimSpace(element))
		if element == "" {
			continue
		}
		element = strings.TrimPrefix(element, "*")
		if alias, ok := wildcardAliases[element]; ok {
			element = alias
		} else if !strings.Contains(element, "/") && !strings.HasPrefix(element, ".") {
			element = "." + element
		}
		if _, dup := seen[element]; dup {
			continue
		}
		seen[element] = struct{}{}
		out = append(out, element)
	}
	return strings.Join(out, ",")
}

// IsExtensionAllowed reports whether a file with the given extension (without
// dot) passes the filter.
func IsExtensionAllowed(filter, extension string) bool {
	filter = NormalizeFilterString(filter)
	if filter == "" {
		return true
	}
	extension = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), "."))
	mimeType := mimeTypeForExtension(extension)

	for _, element := range strings.Split(filter, ",") {
		switch {
		case strings.HasPrefix(element, "."):
			if element[1:] == extension {
				return true
			}
		case strings.HasSuffix(element, "/*"):
			if mimeType != "" && strings.HasPrefix(mimeType, strings.TrimSuffix(element, "*")) {
				return true
			}
		default:
			if mimeType != "" && mimeType == element {
				return true
			}
		}
	}
	return false
}

// IsFilenameAllowed reports whether a file name passes the filter
func IsFilenameAllowed(filter, filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return IsExtensionAllowed(filter, "")
	}
	return IsExtensionAllowed(filter, filename[idx+1:])
}

func mimeTypeForExtension(extension string) string {
	if extension == "" {
		return ""
	}
	t := mime.TypeByExtension("." + extension)
	if t == "" {
		return ""
	}
	if idx := strings.Index(t, ";"); idx >= 0 {
		t = t[:idx]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
