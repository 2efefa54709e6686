package archive

import "strings"

// imageExtensions lists the page formats we serve, lowercase, without the dot.
var imageExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
}

// DefaultContentType is served for any extension not in the image set.
const DefaultContentType = "image/jpeg"

// IsNoise reports whether name is an OS metadata artefact rather than
// content: macOS resource forks and __MACOSX folders, and .DS_Store files.
// Windows-style separators are treated like "/".
func IsNoise(name string) bool {
	n := strings.ReplaceAll(name, `\`, "/")
	switch {
	case strings.Contains(n, "__MACOSX/"),
		strings.Contains(n, "/._"),
		strings.HasPrefix(n, "._"),
		strings.Contains(n, "/.DS_Store"),
		n == ".DS_Store":
		return true
	}
	return false
}

// Extension returns the lowercased text after the last dot of name, or ""
// when name has no dot.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// IsImageName reports whether name carries one of the supported image
// extensions (jpg, jpeg, png, gif, bmp, webp), ignoring case.
func IsImageName(name string) bool {
	_, ok := imageExtensions[Extension(name)]
	return ok
}

// IsPageName reports whether a member called name becomes a page.
func IsPageName(name string) bool {
	return !IsNoise(name) && IsImageName(name)
}

// ContentTypeFor infers the media type of a page from its extension.
// Unknown extensions fall back to DefaultContentType.
func ContentTypeFor(name string) string {
	if ct, ok := imageExtensions[Extension(name)]; ok {
		return ct
	}
	return DefaultContentType
}

// BaseName strips any directory components, accepting both "/" and "\".
func BaseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}
