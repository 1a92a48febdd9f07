package normalizer

import (
	"fmt"
	"strconv"
	"strings"
)

// rawView wraps one raw upstream record and provides typed accessors
// that tolerate the API's mixed camelCase / snake_case key usage and
// its habit of encoding numbers as strings.
type rawView struct {
	data map[string]any
}

func newRawView(data map[string]any) *rawView {
	return &rawView{data: data}
}

// str returns the first non-empty trimmed string found under keys.
func (r *rawView) str(keys ...string) string {
	for _, key := range keys {
		if v, ok := r.data[key]; ok {
			if s := toString(v); s != "" {
				return s
			}
		}
	}

	return ""
}

// intVal returns the first parseable integer found under keys.
func (r *rawView) intVal(keys ...string) (int, bool) {
	for _, key := range keys {
		v, ok := r.data[key]
		if !ok {
			continue
		}

		if n, ok := toInt(v); ok {
			return n, true
		}
	}

	return 0, false
}

// mapVal returns the first nested object found under keys.
func (r *rawView) mapVal(keys ...string) (map[string]any, bool) {
	for _, key := range keys {
		if m, ok := r.data[key].(map[string]any); ok {
			return m, true
		}
	}

	return nil, false
}

// listVal returns the first array found under keys.
func (r *rawView) listVal(keys ...string) ([]any, bool) {
	for _, key := range keys {
		if l, ok := r.data[key].([]any); ok {
			return l, true
		}
	}

	return nil, false
}

// toString renders scalars as trimmed strings; non-scalars yield "".
func toString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}

		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// toInt coerces JSON numbers and numeric strings to int.
func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(val), true
	case int:
		return val, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}

// nestedStr digs into an object field and returns a trimmed string.
func nestedStr(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := toString(v); s != "" {
				return s
			}
		}
	}

	return ""
}

// firstListDate pulls a date string out of the first element of an
// array of {date: ...} objects, as the hearings endpoint returns.
func firstListDate(list []any, key string) string {
	if len(list) == 0 {
		return ""
	}

	if m, ok := list[0].(map[string]any); ok {
		return nestedStr(m, key)
	}

	return ""
}

// sprint formats an ID segment, lowercasing it for determinism.
func sprint(format string, args ...any) string {
	return strings.ToLower(fmt.Sprintf(format, args...))
}
