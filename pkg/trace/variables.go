package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/matzehuels/codeflow/pkg/render/label"
)

// Variables is an ordered set of display values. JSON objects decode in
// document order; values of any JSON type become display strings.
type Variables []label.Binding

// Get returns the value of name.
func (vs Variables) Get(name string) (string, bool) {
	for _, v := range vs {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Bindings returns the variables for label templating.
func (vs Variables) Bindings() []label.Binding {
	return []label.Binding(vs)
}

// MarshalJSON writes the variables as an object of strings, in order.
func (vs Variables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range vs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(v.Name)
		val, _ := json.Marshal(v.Value)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping key order. null decodes to nil.
func (vs *Variables) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*vs = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("variables: expected object, got %v", tok)
	}

	out := Variables{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("variables: unexpected key %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("variables: %s: %w", name, err)
		}
		out = append(out, label.Binding{Name: name, Value: Display(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*vs = out
	return nil
}

// MarshalBSONValue stores the variables as an ordered document.
func (vs Variables) MarshalBSONValue() (bsontype.Type, []byte, error) {
	doc := make(bson.D, len(vs))
	for i, v := range vs {
		doc[i] = bson.E{Key: v.Name, Value: v.Value}
	}
	return bson.MarshalValue(doc)
}

// UnmarshalBSONValue reads an ordered document of strings.
func (vs *Variables) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null {
		*vs = nil
		return nil
	}
	var doc bson.D
	if err := bson.UnmarshalValue(t, data, &doc); err != nil {
		return err
	}
	out := make(Variables, len(doc))
	for i, e := range doc {
		out[i] = label.Binding{Name: e.Key, Value: fmt.Sprint(e.Value)}
	}
	*vs = out
	return nil
}

// Display renders a decoded JSON value the way the traced program would
// print it. Top-level strings are returned as-is; strings nested in lists
// or objects are single-quoted.
func Display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	var b strings.Builder
	repr(&b, v)
	return b.String()
}

func repr(b *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		b.WriteString("None")
	case bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case json.Number:
		b.WriteString(v.String())
	case float64:
		b.WriteString(fmt.Sprint(v))
	case string:
		b.WriteString("'" + strings.ReplaceAll(v, "'", `\'`) + "'")
	case []any:
		b.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			repr(b, e)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			repr(b, k)
			b.WriteString(": ")
			repr(b, v[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprint(b, v)
	}
}

// Kind guesses a value's type from its display string: list, dict, int,
// float, str, or variable when nothing matches.
func Kind(value string) string {
	switch {
	case strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]"):
		return "list"
	case strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}"):
		return "dict"
	case isDigits(value):
		return "int"
	case isDigits(strings.Replace(value, ".", "", 1)):
		return "float"
	case strings.HasPrefix(value, "'") || strings.HasPrefix(value, `"`):
		return "str"
	default:
		return "variable"
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
