package replay

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed scenarios/*.yaml
var scenariosFS embed.FS

// Builtin loads a bundled scenario by name, without extension.
func Builtin(name string) (*Scenario, error) {
	data, err := scenariosFS.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", name, err)
	}
	return Load(bytes.NewReader(data))
}

// Builtins lists the bundled scenario names.
func Builtins() ([]string, error) {
	entries, err := fs.ReadDir(scenariosFS, "scenarios")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	return names, nil
}
