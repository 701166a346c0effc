// Package fileset turns generator output into a flat path -> text mapping.
//
// Generator output is not schema-guaranteed: directories may be nested
// objects, leaves may be text, bytes or arbitrary JSON. Flattening never
// fails; odd shapes are coerced to text and unnamed entries get a
// synthesized name.
package fileset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// MaxDepth bounds how far Flatten descends. A branch nested deeper is kept as
// a single JSON leaf at its path.
const MaxDepth = 32

// FileSet maps a relative path to its text content.
type FileSet map[string]string

// Flatten converts a Go value into a FileSet. Maps with string keys, of any
// value type, are directories and are visited in sorted key order; everything
// else is a leaf.
func Flatten(v any) FileSet {
	out := FileSet{}
	flattenValue(out, "", v, 0)
	return out
}

// FlattenJSON converts generator output given as JSON text. Objects are
// visited in document order, so when two keys resolve to the same path the
// one emitted last wins. Text that is not valid JSON becomes one entry.
func FlattenJSON(raw []byte) FileSet {
	out := FileSet{}
	if !gjson.ValidBytes(raw) {
		out.put("", coerceBytes(raw))
		return out
	}
	flattenJSON(out, "", gjson.ParseBytes(raw), 0)
	return out
}

func flattenJSON(out FileSet, prefix string, r gjson.Result, depth int) {
	if !r.IsObject() {
		if r.Type == gjson.String {
			out.put(prefix, r.Str)
		} else {
			out.put(prefix, r.Raw)
		}
		return
	}
	if depth >= MaxDepth {
		out.put(prefix, r.Raw)
		return
	}
	r.ForEach(func(k, v gjson.Result) bool {
		flattenJSON(out, join(prefix, k.String()), v, depth+1)
		return true
	})
}

func flattenValue(out FileSet, prefix string, v any, depth int) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		out.put(prefix, coerce(v))
		return
	}
	if depth >= MaxDepth {
		out.put(prefix, coerce(v))
		return
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		flattenValue(out, join(prefix, k.String()), rv.MapIndex(k).Interface(), depth+1)
	}
}

// coerce renders a leaf as text: strings pass through, bytes are decoded
// as UTF-8, anything else is its JSON encoding.
func coerce(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return coerceBytes(t)
	case json.RawMessage:
		if r := gjson.ParseBytes(t); r.Type == gjson.String {
			return r.Str
		}
		return coerceBytes(t)
	case json.Number:
		return t.String()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func coerceBytes(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// join appends one key to a path. Slashes around the key are dropped and an
// empty key gets a placeholder name.
func join(prefix, key string) string {
	key = strings.Trim(key, "/")
	if key == "" {
		key = placeholderName()
	}
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func (fs FileSet) put(path, content string) {
	if path == "" {
		path = placeholderName()
	}
	fs[path] = content
}

func placeholderName() string {
	return "file_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Merge applies updates on top of dst and returns dst. Paths in updates win.
func Merge(dst, updates FileSet) FileSet {
	if dst == nil {
		dst = FileSet{}
	}
	for p, c := range updates {
		dst[p] = c
	}
	return dst
}

// Paths returns the file paths in sorted order.
func (fs FileSet) Paths() []string {
	paths := make([]string, 0, len(fs))
	for p := range fs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (fs FileSet) Clone() FileSet {
	out := make(FileSet, len(fs))
	for p, c := range fs {
		out[p] = c
	}
	return out
}

// Size is the total content length in bytes.
func (fs FileSet) Size() int {
	n := 0
	for _, c := range fs {
		n += len(c)
	}
	return n
}
