package graph

import (
	"fmt"
	"sort"
	"strconv"
)

// Params are the parameters of a Graph request. Values are strings, numbers,
// bools, []byte or File; anything else is formatted with fmt.
type Params map[string]any

// File is an upload with an explicit file name and content type.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Clone returns a shallow copy. Binary values share their backing arrays.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isBinary reports values that can only travel in a multipart body.
func isBinary(v any) bool {
	switch v.(type) {
	case []byte, File, *File:
		return true
	}
	return false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
