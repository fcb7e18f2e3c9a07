// Package rule discovers YARA rule source files under a directory tree.
// It does not parse or compile rule content — that is the pattern-matching
// engine's job (see pkg/matcher) — it only locates the files to feed it.
package rule

import (
	"fmt"
	"os"
	"path/filepath"
)

// RuleExtension is the recognized rule-file extension, without the
// leading dot, matching the layout a directory of ".yar" files has on
// disk.
const RuleExtension = "yar"

// DiscoverFiles recursively walks root and returns the paths of every
// file whose extension is RuleExtension. The result is empty, not an
// error, if root contains no rule files — callers decide whether an
// empty result is fatal (it is, per the matcher's construction rules).
func DiscoverFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if len(ext) > 0 && ext[1:] == RuleExtension {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking rule directory %s: %w", root, err)
	}

	return files, nil
}

// ReadSources reads each path in files and returns its contents as a
// rule source string, in the same order.
func ReadSources(files []string) ([]string, error) {
	sources := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading rule file %s: %w", f, err)
		}
		sources = append(sources, string(data))
	}
	return sources, nil
}
