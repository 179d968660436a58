package openapi

import (
	"sort"
	"strconv"
	"strings"
)

// Parameter serialization styles per OpenAPI 3.0. Empty style strings are
// resolved by the caller to the per-location default (path and header:
// simple, query: form).
const (
	StyleSimple         = "simple"
	StyleLabel          = "label"
	StyleMatrix         = "matrix"
	StyleForm           = "form"
	StyleSpaceDelimited = "spaceDelimited"
	StylePipeDelimited  = "pipeDelimited"
	StyleDeepObject     = "deepObject"
)

// QueryPair is one key=value pair destined for the query string.
type QueryPair struct {
	Key   string
	Value string
}

// canonicalString converts a scalar JSON value to its wire text.
// Arrays and objects are not scalars and report ok=false.
func canonicalString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case nil:
		return "null", true
	default:
		return "", false
	}
}

// sortedKeys returns object keys in a stable order so serialized output
// is deterministic regardless of map iteration.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SerializePathParam renders a path parameter per style/explode. It never
// fails; non-scalar members degrade to empty strings.
func SerializePathParam(name string, value any, style string, explode bool) string {
	switch v := value.(type) {
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, _ := canonicalString(item)
			items = append(items, s)
		}
		switch style {
		case StyleLabel:
			if explode {
				return "." + strings.Join(items, ".")
			}
			return "." + strings.Join(items, ",")
		case StyleMatrix:
			if explode {
				var sb strings.Builder
				for _, item := range items {
					sb.WriteString(";" + name + "=" + item)
				}
				return sb.String()
			}
			return ";" + name + "=" + strings.Join(items, ",")
		default: // simple
			return strings.Join(items, ",")
		}

	case map[string]any:
		keys := sortedKeys(v)
		// Flattened alternating k,v form used by simple, label and
		// non-exploded matrix.
		flat := make([]string, 0, len(v)*2)
		for _, k := range keys {
			s, _ := canonicalString(v[k])
			flat = append(flat, k, s)
		}
		switch style {
		case StyleLabel:
			return "." + strings.Join(flat, ",")
		case StyleMatrix:
			if explode {
				var sb strings.Builder
				for _, k := range keys {
					s, _ := canonicalString(v[k])
					sb.WriteString(";" + k + "=" + s)
				}
				return sb.String()
			}
			return ";" + name + "=" + strings.Join(flat, ",")
		default: // simple
			return strings.Join(flat, ",")
		}

	default:
		s, _ := canonicalString(value)
		switch style {
		case StyleLabel:
			return "." + s
		case StyleMatrix:
			return ";" + name + "=" + s
		default: // simple
			return s
		}
	}
}

// SerializeQueryParam renders a query parameter into key/value pairs per
// style/explode. Combinations a style does not define yield no pairs.
func SerializeQueryParam(name string, value any, style string, explode bool) []QueryPair {
	switch style {
	case StyleSpaceDelimited:
		return delimitedPairs(name, value, explode, " ")
	case StylePipeDelimited:
		return delimitedPairs(name, value, explode, "|")
	case StyleDeepObject:
		obj, ok := value.(map[string]any)
		if !ok || !explode {
			return nil
		}
		var pairs []QueryPair
		for _, k := range sortedKeys(obj) {
			if s, ok := canonicalString(obj[k]); ok {
				pairs = append(pairs, QueryPair{Key: name + "[" + k + "]", Value: s})
			}
		}
		return pairs
	default: // form
		switch v := value.(type) {
		case []any:
			if explode {
				var pairs []QueryPair
				for _, item := range v {
					if s, ok := canonicalString(item); ok {
						pairs = append(pairs, QueryPair{Key: name, Value: s})
					}
				}
				return pairs
			}
			return []QueryPair{{Key: name, Value: joinScalars(v, ",")}}
		case map[string]any:
			if explode {
				var pairs []QueryPair
				for _, k := range sortedKeys(v) {
					if s, ok := canonicalString(v[k]); ok {
						pairs = append(pairs, QueryPair{Key: k, Value: s})
					}
				}
				return pairs
			}
			var flat []string
			for _, k := range sortedKeys(v) {
				if s, ok := canonicalString(v[k]); ok {
					flat = append(flat, k, s)
				}
			}
			return []QueryPair{{Key: name, Value: strings.Join(flat, ",")}}
		default:
			if s, ok := canonicalString(value); ok {
				return []QueryPair{{Key: name, Value: s}}
			}
			return nil
		}
	}
}

// delimitedPairs implements spaceDelimited/pipeDelimited, which are only
// defined for arrays; any other value yields no pairs.
func delimitedPairs(name string, value any, explode bool, sep string) []QueryPair {
	arr, ok := value.([]any)
	if !ok {
		return nil
	}
	if explode {
		var pairs []QueryPair
		for _, item := range arr {
			if s, ok := canonicalString(item); ok {
				pairs = append(pairs, QueryPair{Key: name, Value: s})
			}
		}
		return pairs
	}
	return []QueryPair{{Key: name, Value: joinScalars(arr, sep)}}
}

// SerializeHeaderParam renders a header parameter value. The only defined
// header style is simple.
func SerializeHeaderParam(value any, explode bool) string {
	switch v := value.(type) {
	case []any:
		return joinScalars(v, ",")
	case map[string]any:
		var parts []string
		for _, k := range sortedKeys(v) {
			s, ok := canonicalString(v[k])
			if !ok {
				continue
			}
			if explode {
				parts = append(parts, k+"="+s)
			} else {
				parts = append(parts, k, s)
			}
		}
		return strings.Join(parts, ",")
	default:
		s, _ := canonicalString(value)
		return s
	}
}

func joinScalars(items []any, sep string) string {
	var parts []string
	for _, item := range items {
		if s, ok := canonicalString(item); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}
