package lua

import (
	"encoding/json"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toLuaValue converts a JSON-shaped Go value to a Lua value. Values
// outside the JSON shape (structs, typed maps) are round-tripped
// through encoding/json first, so anything marshalable crosses the
// boundary as plain tables.
func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, toLuaValue(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLuaValue(L, item))
		}
		return t
	default:
		return jsonToLua(L, v)
	}
}

// jsonToLua converts an arbitrary Go value via its JSON form.
func jsonToLua(L *lua.LState, v any) lua.LValue {
	data, err := json.Marshal(v)
	if err != nil {
		return lua.LNil
	}
	var shaped any
	if err := json.Unmarshal(data, &shaped); err != nil {
		return lua.LNil
	}
	if _, again := shaped.(map[string]any); !again {
		if _, arr := shaped.([]any); !arr {
			// Scalar after round-trip; convert directly.
			return toLuaValue(L, shaped)
		}
	}
	return toLuaValue(L, shaped)
}

// toGoValue converts a Lua value back to its JSON-shaped Go form.
// Functions and userdata do not cross the boundary and become nil.
func toGoValue(lv lua.LValue) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return tableToGo(v, make(map[*lua.LTable]bool))
	default:
		return nil
	}
}

// tableToGo converts a table to a slice (contiguous 1..n integer keys)
// or a string-keyed map. Circular references are broken with nil.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if visited[t] {
		return nil
	}
	visited[t] = true

	isArray := true
	maxN := 0
	count := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = convertTableValue(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = convertTableValue(v, visited)
	})
	return m
}

func convertTableValue(lv lua.LValue, visited map[*lua.LTable]bool) any {
	if t, ok := lv.(*lua.LTable); ok {
		return tableToGo(t, visited)
	}
	return toGoValue(lv)
}

// tableString reads a string field from a table.
func tableString(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// tableTable reads a table field from a table.
func tableTable(t *lua.LTable, key string) (*lua.LTable, bool) {
	sub, ok := t.RawGetString(key).(*lua.LTable)
	return sub, ok
}
