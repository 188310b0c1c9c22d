package plugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blockpress/blockpress/internal/block"
)

// Manifest is a declarative plugin bundle loaded from YAML. Manifest
// plugins contribute blocks only; scripted behavior comes from Lua
// bundles.
type Manifest struct {
	Name    string          `yaml:"name"`
	Version string          `yaml:"version"`
	Blocks  []ManifestBlock `yaml:"blocks"`
}

// ManifestBlock is one declared block definition.
type ManifestBlock struct {
	ID           string         `yaml:"id"`
	DisplayName  string         `yaml:"display_name"`
	Defaults     map[string]any `yaml:"defaults"`
	Capabilities []string       `yaml:"capabilities"`
}

// ParseManifest decodes and validates a YAML manifest payload.
func ParseManifest(data []byte) (Manifest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Manifest{}, fmt.Errorf("%w: empty manifest", ErrInvalidBundle)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: decode manifest: %v", ErrInvalidBundle, err)
	}
	if err := m.Bundle().Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Bundle converts the manifest to its plugin bundle.
func (m Manifest) Bundle() Bundle {
	b := Bundle{
		Name:    strings.TrimSpace(m.Name),
		Version: strings.TrimSpace(m.Version),
	}
	for _, mb := range m.Blocks {
		def := block.Definition{
			ID:                strings.TrimSpace(mb.ID),
			DisplayName:       mb.DisplayName,
			DefaultProperties: mb.Defaults,
		}
		for _, c := range mb.Capabilities {
			def.Capabilities = append(def.Capabilities, block.Capability(c))
		}
		b.Blocks = append(b.Blocks, def)
	}
	return b
}

// ManifestSource discovers *.yaml manifests in a directory. Files are
// candidates in path order; a missing directory means no plugins.
type ManifestSource struct {
	// Dir is the directory scanned for manifests.
	Dir string

	// Activation filters candidates; nil means all active.
	Activation ActivationLister
}

// Name implements Source.
func (s ManifestSource) Name() string {
	return "manifest:" + s.Dir
}

// Discover implements Source.
func (s ManifestSource) Discover(ctx context.Context) ([]Candidate, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.Dir, err)
	}

	rows, err := LoadActivations(ctx, s.Activation)
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(s.Dir, entry.Name()))
	}
	sort.Strings(paths)

	out := make([]Candidate, 0, len(paths))
	for _, path := range paths {
		path := path
		name := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".yaml"), ".yml")
		out = append(out, Candidate{
			Name:     name,
			IsActive: Active(rows, name),
			Load: func(context.Context) (Bundle, error) {
				data, err := os.ReadFile(path)
				if err != nil {
					return Bundle{}, fmt.Errorf("read %s: %w", path, err)
				}
				m, err := ParseManifest(data)
				if err != nil {
					return Bundle{}, fmt.Errorf("%s: %w", path, err)
				}
				return m.Bundle(), nil
			},
		})
	}
	return out, nil
}

func isYAML(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
