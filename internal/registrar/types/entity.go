package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Field is one named attribute of an Entity.  Values are JSON scalars:
// string, bool, float64 or nil.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered field map.  Order is insertion order and survives a
// JSON round trip.
type Fields []Field

// Entity is a single business record (student absence, tag, heritage item,
// account...).  The ID is fixed at creation; everything else is mutable
// through a change session.
type Entity struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

func NewEntity(id string, fields ...Field) Entity {
	return Entity{ID: id, Fields: append(Fields(nil), fields...)}
}

func (e Entity) Get(name string) (any, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// GetString returns the field as a string.  ok is false when the field is
// missing or holds a non-string value.
func (e Entity) GetString(name string) (string, bool) {
	v, ok := e.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (e Entity) GetBool(name string) (bool, bool) {
	v, ok := e.Get(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Set replaces an existing field in place or appends a new one.
func (e *Entity) Set(name string, value any) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			e.Fields[i].Value = value
			return
		}
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: value})
}

func (e *Entity) Delete(name string) {
	out := e.Fields[:0]
	for _, f := range e.Fields {
		if f.Name != name {
			out = append(out, f)
		}
	}
	e.Fields = out
}

// Clone returns a copy that shares no backing storage with e.
func (e Entity) Clone() Entity {
	out := Entity{ID: e.ID}
	if e.Fields != nil {
		out.Fields = make(Fields, len(e.Fields))
		for i, f := range e.Fields {
			out.Fields[i] = Field{Name: f.Name, Value: cloneValue(f.Value)}
		}
	}
	return out
}

// cloneValue copies the containers a decoded JSON value can hold.  Scalars
// are returned as-is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = cloneValue(x)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	case Fields:
		out := make(Fields, len(t))
		for i, f := range t {
			out[i] = Field{Name: f.Name, Value: cloneValue(f.Value)}
		}
		return out
	}
	return v
}

// Equal reports whether both entities carry the same id and the same fields
// in the same order.
func (e Entity) Equal(o Entity) bool {
	if e.ID != o.ID || len(e.Fields) != len(o.Fields) {
		return false
	}
	for i := range e.Fields {
		if e.Fields[i].Name != o.Fields[i].Name {
			return false
		}
		if !reflect.DeepEqual(e.Fields[i].Value, o.Fields[i].Value) {
			return false
		}
	}
	return true
}

func (fs Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (fs *Fields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*fs = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}

	out := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: expected key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		out = append(out, Field{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*fs = out
	return nil
}
