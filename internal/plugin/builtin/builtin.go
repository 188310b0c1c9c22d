// Package builtin provides the block bundles compiled into the binary.
// They register before any external plugin, so an external plugin that
// reuses a built-in name or block ID takes precedence.
package builtin

import (
	"context"

	"github.com/blockpress/blockpress/internal/block"
	"github.com/blockpress/blockpress/internal/content"
	"github.com/blockpress/blockpress/internal/hook"
	"github.com/blockpress/blockpress/internal/plugin"
)

// Bundles returns every built-in bundle in registration order.
func Bundles() []plugin.Bundle {
	return []plugin.Bundle{basicBundle()}
}

// basicBundle carries the core block set every installation starts with.
func basicBundle() plugin.Bundle {
	return plugin.Bundle{
		Name:    "basic",
		Version: "1.0.0",
		Blocks: []block.Definition{
			{
				ID:          "core/heading",
				DisplayName: "Heading",
				DefaultProperties: map[string]any{
					"text":  "",
					"level": 2,
				},
				Capabilities: []block.Capability{block.CapabilityEditable},
			},
			{
				ID:          "core/paragraph",
				DisplayName: "Paragraph",
				DefaultProperties: map[string]any{
					"text": "",
				},
				Capabilities: []block.Capability{block.CapabilityEditable},
			},
			{
				ID:          "core/image",
				DisplayName: "Image",
				DefaultProperties: map[string]any{
					"src": "",
					"alt": "",
				},
				Capabilities: []block.Capability{block.CapabilityEditable},
			},
			{
				ID:          "core/button",
				DisplayName: "Button",
				DefaultProperties: map[string]any{
					"label": "Click here",
					"href":  "",
				},
				Capabilities: []block.Capability{block.CapabilityEditable},
			},
			{
				ID:          "core/section",
				DisplayName: "Section",
				DefaultProperties: map[string]any{
					"background": "",
				},
				Capabilities: []block.Capability{block.CapabilityChildren},
			},
		},
		Hooks: map[string][]hook.Func{
			"content.before_save": {normalizeHeadings},
		},
	}
}

// normalizeHeadings clamps every core/heading level to 1..6 before a
// revision is written. The transform is idempotent: a second pass over
// its own output changes nothing.
func normalizeHeadings(_ context.Context, args ...any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	tree, ok := args[0].(content.Tree)
	if !ok {
		// A prior fold step may hand the tree over in map form.
		shaped, isMap := args[0].(map[string]any)
		if !isMap {
			return args[0], nil
		}
		restored, err := content.TreeFromMap(shaped)
		if err != nil {
			return args[0], nil
		}
		tree = restored
	}

	out := tree.Clone()
	clampHeadings(out.Elements)
	return out, nil
}

func clampHeadings(els []content.Element) {
	for i := range els {
		el := &els[i]
		if el.Type == "core/heading" && el.Properties != nil {
			if level, ok := headingLevel(el.Properties["level"]); ok {
				switch {
				case level < 1:
					el.Properties["level"] = 1
				case level > 6:
					el.Properties["level"] = 6
				default:
					el.Properties["level"] = level
				}
			}
		}
		clampHeadings(el.Children)
	}
}

func headingLevel(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
