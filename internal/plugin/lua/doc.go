// Package lua loads plugin bundles from Lua scripts.
//
// A script declares a global plugin table:
//
//	plugin = {
//	    name = "reading-time",
//	    version = "1.0.0",
//	    blocks = {
//	        {
//	            id = "reading-time/badge",
//	            display_name = "Reading Time",
//	            defaults = { suffix = " min read" },
//	            capabilities = { "editable" },
//	        },
//	    },
//	    hooks = {
//	        ["content.before_save"] = function(tree)
//	            -- return the (possibly transformed) tree
//	            return tree
//	        end,
//	    },
//	}
//
// Hook functions receive property bags and content trees in their
// JSON-shaped table form and return the transformed value (fold) or a
// contribution (collect). Returning nothing keeps a fold accumulator
// unchanged.
//
// Each script owns one Lua state. gopher-lua states are not
// goroutine-safe, so every call into a script is serialized behind the
// script's mutex. Scripts run with a reduced library set (base, table,
// string, and math) with no file, shell, or network access.
package lua
