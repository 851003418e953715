package render

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver maps stored attachment references to files on disk.
type Resolver struct {
	// BasePath is the site's project or media root.
	BasePath string
}

// Candidates lists the locations tried for ref, in order:
// <base>/media/<ref>, <base>/<ref>, then ref itself when absolute.
func (r Resolver) Candidates(ref string) []string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	var out []string
	if base := strings.TrimSpace(r.BasePath); base != "" {
		rel := strings.TrimLeft(filepath.FromSlash(ref), string(filepath.Separator))
		out = append(out, filepath.Join(base, "media", rel), filepath.Join(base, rel))
	}
	if filepath.IsAbs(ref) {
		out = append(out, filepath.Clean(ref))
	}
	return out
}

// Resolve returns the first candidate that is an existing regular file.
func (r Resolver) Resolve(ref string) (string, bool) {
	for _, p := range r.Candidates(ref) {
		fi, err := os.Stat(p)
		if err == nil && fi.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
