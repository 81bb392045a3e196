// redact.go implements recursive key-based redaction of Vars.

package hoptoad

import "regexp"

// Filtered replaces the value of every redacted key.
const Filtered = "[FILTERED]"

// Redactor replaces values of sensitive keys with Filtered.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor compiles patterns. Each pattern is searched in the key
// case-insensitively; a pattern that is not a valid expression matches
// as a literal substring.
func NewRedactor(patterns []string) *Redactor {
	r := &Redactor{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(p))
		}
		r.patterns = append(r.patterns, re)
	}
	return r
}

// Redact returns a copy of vars with the same shape where every matching
// key, at any depth, maps to Filtered. The input is never modified.
func (r *Redactor) Redact(vars Vars) Vars {
	if vars == nil {
		return Vars{}
	}
	out := make(Vars, len(vars))
	for i, kv := range vars {
		value := r.redactValue(kv.Value)
		if r.IsSensitiveKey(kv.Key) {
			value = Filtered
		}
		out[i] = Var{Key: kv.Key, Value: value}
	}
	return out
}

// IsSensitiveKey reports whether key matches any pattern.
func (r *Redactor) IsSensitiveKey(key string) bool {
	for _, re := range r.patterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// redactValue recurses into nested mappings and into sequences,
// so a list of mappings is redacted element by element. Raw Go maps and
// slices are normalized first so they are walked like Vars.
func (r *Redactor) redactValue(value any) any {
	switch v := normalizeValue(value).(type) {
	case Vars:
		return r.Redact(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.redactValue(item)
		}
		return out
	default:
		return v
	}
}

// Redact is a convenience for NewRedactor(patterns).Redact(vars).
func Redact(vars Vars, patterns []string) Vars {
	return NewRedactor(patterns).Redact(vars)
}
