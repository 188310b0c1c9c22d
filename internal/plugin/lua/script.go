package lua

import (
	"context"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/blockpress/blockpress/internal/block"
	"github.com/blockpress/blockpress/internal/hook"
	"github.com/blockpress/blockpress/internal/plugin"
)

// Script is a loaded Lua plugin. It owns a single Lua state; all calls
// into the state are serialized behind mu.
type Script struct {
	path string
	name string

	mu    sync.Mutex
	state *lua.LState
}

// LoadScript runs the file at path in a fresh sandboxed state and reads
// its plugin declaration into a bundle. The returned bundle's hook
// functions call back into the script's state.
func LoadScript(path string) (*Script, plugin.Bundle, error) {
	L := newSandboxedState()

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, plugin.Bundle{}, fmt.Errorf("lua: run %s: %w", path, err)
	}

	decl, ok := L.GetGlobal("plugin").(*lua.LTable)
	if !ok {
		L.Close()
		return nil, plugin.Bundle{}, fmt.Errorf("lua: %s: %w: no plugin table declared", path, plugin.ErrInvalidBundle)
	}

	s := &Script{path: path, state: L}
	bundle, err := s.bundle(decl)
	if err != nil {
		L.Close()
		return nil, plugin.Bundle{}, err
	}
	s.name = bundle.Name
	return s, bundle, nil
}

// newSandboxedState builds a state with base, table, string, and math
// libraries only, with the file and code loading entry points removed.
func newSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// bundle converts the plugin declaration table to a plugin.Bundle.
func (s *Script) bundle(decl *lua.LTable) (plugin.Bundle, error) {
	b := plugin.Bundle{
		Name:    tableString(decl, "name"),
		Version: tableString(decl, "version"),
	}

	if blocks, ok := tableTable(decl, "blocks"); ok {
		blocks.ForEach(func(_, v lua.LValue) {
			bt, ok := v.(*lua.LTable)
			if !ok {
				return
			}
			b.Blocks = append(b.Blocks, blockDefinition(bt))
		})
	}

	if hooks, ok := tableTable(decl, "hooks"); ok {
		b.Hooks = make(map[string][]hook.Func)
		var bad error
		hooks.ForEach(func(k, v lua.LValue) {
			name, nameOK := k.(lua.LString)
			fn, fnOK := v.(*lua.LFunction)
			if !nameOK || !fnOK {
				bad = fmt.Errorf("lua: %s: %w: hooks must map names to functions", s.path, plugin.ErrInvalidBundle)
				return
			}
			hookName := string(name)
			b.Hooks[hookName] = append(b.Hooks[hookName], s.hookFunc(fn))
		})
		if bad != nil {
			return plugin.Bundle{}, bad
		}
	}

	return b, nil
}

// blockDefinition reads a block declaration table.
func blockDefinition(t *lua.LTable) block.Definition {
	def := block.Definition{
		ID:          tableString(t, "id"),
		DisplayName: tableString(t, "display_name"),
	}
	if defaults, ok := tableTable(t, "defaults"); ok {
		if m, isMap := tableToGo(defaults, make(map[*lua.LTable]bool)).(map[string]any); isMap {
			def.DefaultProperties = m
		}
	}
	if caps, ok := tableTable(t, "capabilities"); ok {
		caps.ForEach(func(_, v lua.LValue) {
			if s, isStr := v.(lua.LString); isStr {
				def.Capabilities = append(def.Capabilities, block.Capability(s))
			}
		})
	}
	return def
}

// hookFunc wraps a Lua function as a hook.Func. Arguments cross the
// boundary as JSON-shaped tables; the first return value crosses back.
// A script error surfaces as the callback's error.
func (s *Script) hookFunc(fn *lua.LFunction) hook.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		L := s.state
		L.Push(fn)
		for _, arg := range args {
			L.Push(toLuaValue(L, arg))
		}
		if err := L.PCall(len(args), 1, nil); err != nil {
			return nil, fmt.Errorf("lua: %s: %w", s.path, err)
		}

		ret := L.Get(-1)
		L.Pop(1)
		if ret == lua.LNil {
			return nil, nil
		}
		return toGoValue(ret), nil
	}
}

// Name returns the plugin name from the script's declaration.
func (s *Script) Name() string { return s.name }

// Path returns the script's source path.
func (s *Script) Path() string { return s.path }

// Close releases the script's Lua state. Hook callbacks must not be
// invoked after Close.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Close()
}

// readScriptName parses just the name field without keeping a state
// around, for discovery listings.
func readScriptName(path string) (name, version string, err error) {
	if _, err := os.Stat(path); err != nil {
		return "", "", err
	}
	L := newSandboxedState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return "", "", fmt.Errorf("lua: run %s: %w", path, err)
	}
	decl, ok := L.GetGlobal("plugin").(*lua.LTable)
	if !ok {
		return "", "", fmt.Errorf("lua: %s: %w: no plugin table declared", path, plugin.ErrInvalidBundle)
	}
	return tableString(decl, "name"), tableString(decl, "version"), nil
}
