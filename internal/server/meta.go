package server

import (
	"net/http"

	"github.com/blockpress/blockpress/internal/block"
)

// blockInfo is a catalog entry on the wire.
type blockInfo struct {
	ID           string         `json:"id"`
	DisplayName  string         `json:"display_name,omitempty"`
	Defaults     map[string]any `json:"defaults,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
}

// handleListBlocks returns the registered block catalog in registration
// order.
func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	defs := s.registry.Catalog().List()
	out := make([]blockInfo, len(defs))
	for i, def := range defs {
		out[i] = blockInfo{
			ID:           def.ID,
			DisplayName:  def.DisplayName,
			Defaults:     def.DefaultProperties,
			Capabilities: capabilityNames(def.Capabilities),
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"blocks": out})
}

func capabilityNames(caps []block.Capability) []string {
	if len(caps) == 0 {
		return nil
	}
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}

// pluginInfo is a registered plugin on the wire.
type pluginInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type pluginWarning struct {
	Plugin string `json:"plugin"`
	Reason string `json:"reason"`
}

// handleListPlugins returns registered plugins in registration order
// plus any warnings recorded while registering them.
func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Registered()
	plugins := make([]pluginInfo, len(names))
	for i, name := range names {
		info := pluginInfo{Name: name}
		if v, ok := s.registry.Version(name); ok {
			info.Version = v
		}
		plugins[i] = info
	}

	warnings := make([]pluginWarning, 0)
	for _, warning := range s.registry.Warnings() {
		warnings = append(warnings, pluginWarning{Plugin: warning.Plugin, Reason: warning.Reason})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"plugins":  plugins,
		"warnings": warnings,
	})
}
