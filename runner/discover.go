package runner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern matches pre-built test binaries, the fixed naming convention
// for batch tasks.
const DefaultPattern = "*.test"

// Discover lists the task executables under dir matching pattern, sorted by
// name. The sorted order is the FIFO queue order of the run.
func Discover(dir, pattern string) ([]Task, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad task pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	tasks := make([]Task, 0, len(matches))
	for _, path := range matches {
		base := filepath.Base(path)
		tasks = append(tasks, Task{
			Name:    strings.TrimSuffix(base, filepath.Ext(base)),
			Command: []string{path},
		})
	}
	return tasks, nil
}
