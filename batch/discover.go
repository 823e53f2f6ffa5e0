package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Discover expands inputs into a sorted, de-duplicated list of song paths.
// Directories are matched against pattern (non-recursive); anything else is
// passed through so unreadable files surface as per-song failures.
func Discover(inputs []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.wav"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil || !info.IsDir() {
			add(input)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(input, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", input, err)
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
				add(m)
			}
		}
	}

	slices.Sort(paths)
	return paths, nil
}
