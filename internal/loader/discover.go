package loader

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches YAML and CUE flow files anywhere below the working
// directory.
const DefaultPattern = "**/*.krepko.{yaml,yml,cue}"

// DefaultIgnore lists directories never searched for flow files.
var DefaultIgnore = []string{"**/node_modules/**", "**/dist/**", "**/.git/**"}

// Discover expands a glob pattern (with ** and {a,b} support) into a sorted
// list of flow files. A pattern that matches nothing is not an error.
func Discover(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
	if !doublestar.ValidatePattern(rel) {
		return nil, newError(ErrCodeScanError, "", "invalid pattern %q", pattern)
	}

	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(base), rel, doublestar.WithFilesOnly())
	if err != nil {
		return nil, newError(ErrCodeScanError, "", "scan %q: %v", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if ignored(m) {
			continue
		}
		files = append(files, filepath.Join(base, filepath.FromSlash(m)))
	}
	slices.Sort(files)
	return files, nil
}

func ignored(rel string) bool {
	for _, p := range DefaultIgnore {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}

// FormatOf infers the flow file format from its extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".cue":
		return FormatCUE, true
	default:
		return "", false
	}
}
