package tabular

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// jsonObject keeps object keys in document order
type jsonObject struct {
	keys   []string
	values map[string]any
}

// nonFiniteLiterals are the bare tokens accepted in place of a number, as
// written by Python's json module. NaN reads as missing; the infinities
// become out-of-range numbers, which are values.
var nonFiniteLiterals = []struct {
	literal     string
	replacement string
}{
	{"-Infinity", "-1e999"},
	{"Infinity", "1e999"},
	{"NaN", "null"},
}

// DecodeJSON reads a JSON document. A top-level array yields one row per
// element, with the union of element keys as columns. A top-level object
// is flattened into dotted-path columns and yields a single row. Bare NaN
// is missing, like null.
func DecodeJSON(ctx context.Context, data []byte) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(replaceNonFinite(data)))
	dec.UseNumber()

	doc, err := readJSONValue(dec)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty JSON document")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid JSON: unexpected data after top-level value")
	}

	switch top := doc.(type) {
	case []any:
		return tableFromRecords(top)
	case *jsonObject:
		return tableFromObject(top), nil
	default:
		return nil, fmt.Errorf("top-level JSON value must be an array or an object, got %s", jsonKind(doc))
	}
}

// replaceNonFinite rewrites NaN, Infinity and -Infinity outside strings into
// standard JSON. Input without them is returned unchanged.
func replaceNonFinite(data []byte) []byte {
	if !bytes.Contains(data, []byte("NaN")) && !bytes.Contains(data, []byte("Infinity")) {
		return data
	}

	out := make([]byte, 0, len(data)+16)
	inString, escaped := false, false
	for i := 0; i < len(data); {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			out = append(out, c)
			i++
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			i++
			continue
		}
		if lit, repl, ok := nonFiniteAt(data, i); ok {
			out = append(out, repl...)
			i += len(lit)
			continue
		}
		out = append(out, c)
		i++
	}
	return out
}

// nonFiniteAt matches a whole non-finite literal starting at data[i]
func nonFiniteAt(data []byte, i int) (literal, replacement string, ok bool) {
	if i > 0 && isWordByte(data[i-1]) {
		return "", "", false
	}
	for _, nf := range nonFiniteLiterals {
		end := i + len(nf.literal)
		if !bytes.HasPrefix(data[i:], []byte(nf.literal)) {
			continue
		}
		if end < len(data) && isWordByte(data[end]) {
			return "", "", false
		}
		return nf.literal, nf.replacement, true
	}
	return "", "", false
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' || c == '+' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// readJSONValue reads the next value. JSON null is returned as nil.
func readJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &jsonObject{values: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T, not a string", keyTok)
			}
			val, err := readJSONValue(dec)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			if _, seen := obj.values[key]; !seen {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpectedEOF(err)
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := readJSONValue(dec)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpectedEOF(err)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// unexpectedEOF keeps a truncated nested value from reading as an empty document
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// tableFromRecords collects the column universe in a first pass, then
// marks absent or null values in a second.
func tableFromRecords(records []any) (*Table, error) {
	objects := make([]*jsonObject, len(records))
	var columns []string
	seen := make(map[string]struct{})

	for i, rec := range records {
		obj, ok := rec.(*jsonObject)
		if !ok {
			return nil, fmt.Errorf("array element %d is %s, not an object", i, jsonKind(rec))
		}
		objects[i] = obj
		for _, key := range obj.keys {
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				columns = append(columns, key)
			}
		}
	}

	t := NewTable(columns)
	for _, obj := range objects {
		nulls := make([]bool, len(columns))
		for c, col := range columns {
			val, present := obj.values[col]
			nulls[c] = !present || val == nil
		}
		if err := t.AppendRow(nulls); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// tableFromObject flattens nested objects into dotted paths. Empty nested
// objects contribute no column and arrays are kept as leaf values.
func tableFromObject(obj *jsonObject) *Table {
	var columns []string
	var nulls []bool
	index := make(map[string]int)

	var flatten func(prefix string, o *jsonObject)
	flatten = func(prefix string, o *jsonObject) {
		for _, key := range o.keys {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			val := o.values[key]
			if child, ok := val.(*jsonObject); ok {
				flatten(path, child)
				continue
			}
			if i, dup := index[path]; dup {
				nulls[i] = val == nil
				continue
			}
			index[path] = len(columns)
			columns = append(columns, path)
			nulls = append(nulls, val == nil)
		}
	}
	flatten("", obj)

	t := NewTable(columns)
	// one row per object, so the lengths always match
	_ = t.AppendRow(nulls)
	return t
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case json.Number:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	case *jsonObject:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
