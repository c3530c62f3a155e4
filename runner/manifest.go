package runner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the optional YAML task list, for runs whose tasks need
// arguments or environment overrides beyond what file discovery can express.
type Manifest struct {
	Tasks []ManifestTask `yaml:"tasks"`
}

type ManifestTask struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
	Env     []string `yaml:"env,omitempty"`
}

// LoadManifest reads a task manifest. Task order in the file is the FIFO
// queue order of the run.
func LoadManifest(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse task manifest %s: %w", path, err)
	}

	tasks := make([]Task, 0, len(m.Tasks))
	seen := make(map[string]struct{})
	for i, mt := range m.Tasks {
		if mt.Name == "" {
			return nil, fmt.Errorf("manifest task %d has no name", i)
		}
		if len(mt.Command) == 0 {
			return nil, fmt.Errorf("manifest task %q has no command", mt.Name)
		}
		if _, ok := seen[mt.Name]; ok {
			return nil, fmt.Errorf("manifest task name %q is duplicated", mt.Name)
		}
		seen[mt.Name] = struct{}{}
		tasks = append(tasks, Task{Name: mt.Name, Command: mt.Command, Env: mt.Env})
	}
	return tasks, nil
}
