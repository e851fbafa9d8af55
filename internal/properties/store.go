package properties

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Store is a read-only view of the settings store with typed lookups.
type Store interface {
	String(key, def string) string
	Bool(key string, def bool) bool
	Int(key string, def int) int
}

// Map is an in-memory Store. Values may be strings or already typed values.
type Map map[string]any

func (m Map) String(key, def string) string {
	raw, ok := m[key]
	if !ok {
		return def
	}
	return toString(raw, def)
}

func (m Map) Bool(key string, def bool) bool {
	raw, ok := m[key]
	if !ok {
		return def
	}
	return toBool(raw, def)
}

func (m Map) Int(key string, def int) int {
	raw, ok := m[key]
	if !ok {
		return def
	}
	return toInt(raw, def)
}

func toString(raw any, def string) string {
	if raw == nil {
		return def
	}
	v, err := cast.ToStringE(raw)
	if err != nil {
		return def
	}
	return v
}

// toBool treats a set string as true only when it reads "true" in any case.
// Every other string, including an empty one, is false.
func toBool(raw any, def bool) bool {
	if raw == nil {
		return def
	}
	if s, ok := raw.(string); ok {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return def
	}
	return v
}

// toInt parses strings as plain decimal. Base prefixes and digit separators
// are not accepted and give the default.
func toInt(raw any, def int) int {
	if raw == nil {
		return def
	}
	if s, ok := raw.(string); ok {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return v
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return def
	}
	return v
}
