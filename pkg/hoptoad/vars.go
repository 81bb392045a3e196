// vars.go implements the ordered key/value mapping used for params, session,
// cgi data and environment variables.

package hoptoad

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Var is one entry of a Vars mapping. Value is a string, a nested Vars,
// a []any sequence, or any other value rendered with fmt.Sprint.
type Var struct {
	Key   string
	Value any
}

// Vars is an insertion-ordered mapping. Rendering follows slice order,
// so the same Vars always produce the same XML.
type Vars []Var

// NewVars converts a Go map to Vars with keys in sorted order.
// Nested maps and slices are converted recursively.
func NewVars[V any](m map[string]V) Vars {
	if len(m) == 0 {
		return Vars{}
	}
	keys := lo.Keys(m)
	slices.Sort(keys)
	vars := make(Vars, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, Var{Key: k, Value: normalizeValue(m[k])})
	}
	return vars
}

// Get returns the value stored under key.
func (v Vars) Get(key string) (any, bool) {
	for _, kv := range v {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// String returns the value under key in its rendered string form, or "".
func (v Vars) String(key string) string {
	val, ok := v.Get(key)
	if !ok {
		return ""
	}
	return fmt.Sprint(val)
}

// Set replaces the value under key, or appends it when absent.
func (v Vars) Set(key string, value any) Vars {
	value = normalizeValue(value)
	for i := range v {
		if v[i].Key == key {
			v[i].Value = value
			return v
		}
	}
	return append(v, Var{Key: key, Value: value})
}

// Without returns a copy of v minus the given keys.
func (v Vars) Without(keys ...string) Vars {
	out := lo.Filter(v, func(kv Var, _ int) bool {
		return !slices.Contains(keys, kv.Key)
	})
	if out == nil {
		return Vars{}
	}
	return out
}

// Keys returns the keys in order.
func (v Vars) Keys() []string {
	return lo.Map(v, func(kv Var, _ int) string { return kv.Key })
}

// normalizeVars returns a copy of v with every value normalized, so raw
// maps nested in a Vars literal become Vars at every depth.
func normalizeVars(v Vars) Vars {
	if v == nil {
		return Vars{}
	}
	return lo.Map(v, func(kv Var, _ int) Var {
		return Var{Key: kv.Key, Value: normalizeValue(kv.Value)}
	})
}

// orEmpty turns a nil mapping into an empty one.
func orEmpty(v Vars) Vars {
	if v == nil {
		return Vars{}
	}
	return v
}

func normalizeValue(value any) any {
	switch val := value.(type) {
	case nil:
		return ""
	case Vars:
		return normalizeVars(val)
	case map[string]any:
		return NewVars(val)
	case map[string]string:
		return NewVars(val)
	case map[string][]string:
		return NewVars(val)
	case []string:
		if len(val) == 1 {
			return val[0]
		}
		return lo.Map(val, func(s string, _ int) any { return s })
	case []any:
		return lo.Map(val, func(item any, _ int) any { return normalizeValue(item) })
	case []map[string]any:
		return lo.Map(val, func(item map[string]any, _ int) any { return NewVars(item) })
	case []map[string]string:
		return lo.Map(val, func(item map[string]string, _ int) any { return NewVars(item) })
	default:
		return value
	}
}
