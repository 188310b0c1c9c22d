package lua

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/blockpress/blockpress/internal/plugin"
)

// DirSource discovers Lua plugin scripts in a directory. Every *.lua
// file is one candidate. Activation decides which candidates load;
// a nil Activation treats everything as active.
type DirSource struct {
	Dir        string
	Activation plugin.ActivationLister
}

// Name implements plugin.Source.
func (s DirSource) Name() string { return "lua:" + s.Dir }

// Discover implements plugin.Source. Each script runs once in a
// throwaway state to read its declared name and version; scripts that
// fail to run are still listed so the loader can report the failure.
// A missing directory means no plugins, not an error.
func (s DirSource) Discover(ctx context.Context) ([]plugin.Candidate, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := plugin.LoadActivations(ctx, s.Activation)
	if err != nil {
		return nil, err
	}

	var candidates []plugin.Candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		path := filepath.Join(s.Dir, entry.Name())

		name, version, readErr := readScriptName(path)
		if readErr != nil {
			// Surface the broken script through the loader instead of
			// failing the whole source.
			candidates = append(candidates, plugin.Candidate{
				Name:     strings.TrimSuffix(entry.Name(), ".lua"),
				IsActive: true,
				Load: func(context.Context) (plugin.Bundle, error) {
					return plugin.Bundle{}, readErr
				},
			})
			continue
		}

		candidates = append(candidates, plugin.Candidate{
			Name:     name,
			Version:  version,
			IsActive: plugin.Active(rows, name),
			Load: func(context.Context) (plugin.Bundle, error) {
				_, bundle, err := LoadScript(path)
				return bundle, err
			},
		})
	}
	return candidates, nil
}
