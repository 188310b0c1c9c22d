package lua

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/blockpress/blockpress/internal/block"
)

const badgeScript = `
plugin = {
    name = "reading-time",
    version = "1.0.0",
    blocks = {
        {
            id = "reading-time/badge",
            display_name = "Reading Time",
            defaults = { suffix = " min read", minutes = 1 },
            capabilities = { "editable" },
        },
    },
    hooks = {
        ["element.render"] = function(props)
            props.label = tostring(props.minutes) .. props.suffix
            return props
        end,
        ["element.controls"] = function()
            return { kind = "toggle", label = "Show badge" }
        end,
    },
}
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScript(t *testing.T) {
	path := writeScript(t, t.TempDir(), "badge.lua", badgeScript)

	script, bundle, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	defer script.Close()

	if bundle.Name != "reading-time" || bundle.Version != "1.0.0" {
		t.Errorf("bundle = %s, want reading-time v1.0.0", bundle)
	}
	if len(bundle.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(bundle.Blocks))
	}
	def := bundle.Blocks[0]
	if def.ID != "reading-time/badge" {
		t.Errorf("block id = %q", def.ID)
	}
	if def.DefaultProperties["suffix"] != " min read" {
		t.Errorf("suffix default = %v", def.DefaultProperties["suffix"])
	}
	if !def.HasCapability(block.Capability("editable")) {
		t.Error("expected editable capability")
	}
	if len(bundle.Hooks["element.render"]) != 1 || len(bundle.Hooks["element.controls"]) != 1 {
		t.Errorf("hooks = %v, want element.render and element.controls", len(bundle.Hooks))
	}
}

func TestScriptHookTransformsProperties(t *testing.T) {
	path := writeScript(t, t.TempDir(), "badge.lua", badgeScript)
	script, bundle, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	defer script.Close()

	fn := bundle.Hooks["element.render"][0]
	out, err := fn(context.Background(), map[string]any{
		"minutes": int64(4),
		"suffix":  " min read",
	})
	if err != nil {
		t.Fatalf("hook: %v", err)
	}

	props, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("hook returned %T, want map", out)
	}
	if props["label"] != "4 min read" {
		t.Errorf("label = %v, want %q", props["label"], "4 min read")
	}
}

func TestScriptHookCollectContribution(t *testing.T) {
	path := writeScript(t, t.TempDir(), "badge.lua", badgeScript)
	script, bundle, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	defer script.Close()

	out, err := bundle.Hooks["element.controls"][0](context.Background())
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	control, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("hook returned %T, want map", out)
	}
	if control["kind"] != "toggle" {
		t.Errorf("kind = %v, want toggle", control["kind"])
	}
}

func TestScriptHookError(t *testing.T) {
	path := writeScript(t, t.TempDir(), "angry.lua", `
plugin = {
    name = "angry",
    hooks = {
        ["content.before_save"] = function() error("refuse") end,
    },
}
`)
	script, bundle, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	defer script.Close()

	if _, err := bundle.Hooks["content.before_save"][0](context.Background()); err == nil {
		t.Error("expected the script error to surface")
	}
}

func TestScriptHookNilReturn(t *testing.T) {
	path := writeScript(t, t.TempDir(), "quiet.lua", `
plugin = {
    name = "quiet",
    hooks = {
        ["content.before_save"] = function(tree) end,
    },
}
`)
	script, bundle, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	defer script.Close()

	out, err := bundle.Hooks["content.before_save"][0](context.Background(), map[string]any{"x": int64(1)})
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	if out != nil {
		t.Errorf("out = %v, want nil for no return", out)
	}
}

func TestLoadScriptErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"syntax error", "plugin = {"},
		{"no declaration", `x = 1`},
		{"hooks not functions", `plugin = { name = "bad", hooks = { save = "nope" } }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, dir, "plugin.lua", tt.body)
			if _, _, err := LoadScript(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSandboxBlocksFileAccess(t *testing.T) {
	path := writeScript(t, t.TempDir(), "sneaky.lua", `
if os ~= nil or io ~= nil or dofile ~= nil then
    error("escape hatch available")
end
plugin = { name = "sneaky" }
`)
	script, _, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	script.Close()
}

func TestDirSourceDiscover(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "badge.lua", badgeScript)
	writeScript(t, dir, "broken.lua", "plugin = {")
	writeScript(t, dir, "notes.txt", "not a script")

	src := DirSource{Dir: dir}
	candidates, err := src.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}

	if candidates[0].Name != "reading-time" || candidates[0].Version != "1.0.0" {
		t.Errorf("candidates[0] = %s v%s", candidates[0].Name, candidates[0].Version)
	}
	bundle, err := candidates[0].Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bundle.Name != "reading-time" {
		t.Errorf("bundle.Name = %q", bundle.Name)
	}

	// The broken script is listed under its file name and fails on load.
	if candidates[1].Name != "broken" {
		t.Errorf("candidates[1].Name = %q, want broken", candidates[1].Name)
	}
	if _, err := candidates[1].Load(context.Background()); err == nil {
		t.Error("broken script should fail to load")
	}
}

func TestDirSourceMissingDir(t *testing.T) {
	src := DirSource{Dir: filepath.Join(t.TempDir(), "absent")}
	candidates, err := src.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if candidates != nil {
		t.Errorf("candidates = %v, want nil", candidates)
	}
}

type staticActivation map[string]bool

func (a staticActivation) ListActivations(context.Context) (map[string]bool, error) {
	return a, nil
}

func TestDirSourceActivation(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "badge.lua", badgeScript)

	src := DirSource{Dir: dir, Activation: staticActivation{"reading-time": false}}
	candidates, err := src.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	if candidates[0].IsActive {
		t.Error("reading-time should be inactive")
	}
}

func TestValueRoundTrip(t *testing.T) {
	path := writeScript(t, t.TempDir(), "echo.lua", `
plugin = {
    name = "echo",
    hooks = {
        ["echo"] = function(v) return v end,
    },
}
`)
	script, bundle, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	defer script.Close()
	echo := bundle.Hooks["echo"][0]

	out, err := echo(context.Background(), map[string]any{
		"flag":  true,
		"count": int64(7),
		"ratio": 0.5,
		"tags":  []any{"a", "b"},
		"meta":  map[string]any{"depth": int64(2)},
	})
	if err != nil {
		t.Fatalf("echo: %v", err)
	}

	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("out = %T, want map", out)
	}
	if m["flag"] != true || m["count"] != int64(7) || m["ratio"] != 0.5 {
		t.Errorf("scalars = %v", m)
	}
	tags, ok := m["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "a" {
		t.Errorf("tags = %v", m["tags"])
	}
	meta, ok := m["meta"].(map[string]any)
	if !ok || meta["depth"] != int64(2) {
		t.Errorf("meta = %v", m["meta"])
	}
}
