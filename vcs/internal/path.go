package internal

import (
	"path"
	"strings"
)

// ValidTreePath reports whether p can name an entry of a git tree: a
// clean, relative, slash-separated path with no "." or ".." elements
// and no ".git" directory.
func ValidTreePath(p string) bool {
	if p == "" || p == "." || path.Clean(p) != p || strings.HasPrefix(p, "/") {
		return false
	}
	for _, elem := range strings.Split(p, "/") {
		if elem == ".." || elem == ".git" {
			return false
		}
	}
	return true
}
