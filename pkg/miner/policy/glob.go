package policy

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/localmesh/fsminer/pkg/miner/fileref"
)

// GlobIgnore builds a ShouldCheckFunc that declines any file or directory
// whose path, relative to root, matches one of the given doublestar glob
// patterns (e.g. "**/.git/**", "**/node_modules/**"). Malformed patterns are
// skipped rather than treated as fatal, since they come from host
// configuration rather than the pipeline itself.
func GlobIgnore(root fileref.Ref, patterns []string) ShouldCheckFunc {
	return func(file fileref.Ref, _ bool) bool {
		rel, err := relativeSlash(root, file)
		if err != nil {
			return true
		}
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return false
			}
		}
		return true
	}
}

func relativeSlash(root, file fileref.Ref) (string, error) {
	rootPath := root.Path()
	filePath := file.Path()
	if len(filePath) < len(rootPath) {
		return filePath, nil
	}
	rel := filePath[len(rootPath):]
	for len(rel) > 0 && (rel[0] == '/' || rel[0] == '\\') {
		rel = rel[1:]
	}
	return rel, nil
}
