package gateway

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"frc2g/internal/alias"
)

type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

func (k Kind) String() string {
	return [...]string{"null", "string", "number", "bool", "list", "object"}[k]
}

// Value is a decoded JSON value. Accessors never fail: a value of the wrong
// shape reads as null, empty or false.
type Value struct {
	raw any
}

func ParseValue(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, err
	}
	return Value{raw: raw}, nil
}

func (v Value) Raw() any { return v.raw }

func (v Value) Kind() Kind {
	switch v.raw.(type) {
	case string:
		return KindString
	case float64:
		return KindNumber
	case bool:
		return KindBool
	case []any:
		return KindList
	case map[string]any:
		return KindObject
	default:
		return KindNull
	}
}

func (v Value) IsNull() bool { return v.Kind() == KindNull }

// Get returns the member key of an object, or null.
func (v Value) Get(key string) Value {
	if m, ok := v.raw.(map[string]any); ok {
		return Value{raw: m[key]}
	}
	return Value{}
}

// Path follows a dotted path of object keys.
func (v Value) Path(path string) Value {
	for _, key := range strings.Split(path, ".") {
		v = v.Get(key)
	}
	return v
}

// Items returns the elements of a list; ok is false for any other kind.
func (v Value) Items() ([]Value, bool) {
	list, ok := v.raw.([]any)
	if !ok {
		return nil, false
	}
	items := make([]Value, len(list))
	for i, item := range list {
		items[i] = Value{raw: item}
	}
	return items, true
}

// Keys returns the sorted member names of an object; ok is false for any other kind.
func (v Value) Keys() ([]string, bool) {
	m, ok := v.raw.(map[string]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, true
}

// Text renders scalars and lists (joined with ", "). Null and objects yield "".
func (v Value) Text() string {
	s, _ := alias.Text(v.raw)
	return s
}

// Truthy follows JSON-ish truthiness: null, "", 0, false and empty containers are false.
func (v Value) Truthy() bool {
	switch x := v.raw.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// Bool accepts booleans, numbers and the usual string spellings. Anything else yields def.
func (v Value) Bool(def bool) bool {
	switch x := v.raw.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off", "":
			return false
		}
	}
	return def
}

// Int reads numbers and numeric strings.
func (v Value) Int() (int, bool) {
	switch x := v.raw.(type) {
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

// listOf coerces v to a list. Any other shape is logged and read as empty.
func listOf(v Value, what string) []Value {
	if v.IsNull() {
		return nil
	}
	items, ok := v.Items()
	if !ok {
		slog.Warn("Unexpected data format, expected a list", "what", what, "kind", v.Kind().String())
		return nil
	}
	return items
}

// objectsOf keeps only the object elements of a list.
func objectsOf(items []Value) []Value {
	out := items[:0:0]
	for _, item := range items {
		if item.Kind() == KindObject {
			out = append(out, item)
		}
	}
	return out
}
