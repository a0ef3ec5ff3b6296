package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the scalar kinds a property value can hold.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is a closed scalar union for entity and relationship properties.
// It round-trips through JSON as a bare scalar (string, number, or bool)
// rather than a tagged object, so property bags look like plain maps on
// the wire while staying statically typed in memory.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	i    int64
	b    bool
}

// StringValue returns a string-kinded Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue returns an integer-kinded Value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue returns a float-kinded Value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, num: f} }

// BoolValue returns a bool-kinded Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value's discriminant.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload; ok is false for non-string kinds.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInt returns the integer payload; ok is false for non-int kinds.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload; ok is false for non-float kinds.
func (v Value) AsFloat() (float64, bool) { return v.num, v.kind == KindFloat }

// AsBool returns the bool payload; ok is false for non-bool kinds.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// String renders the payload without kind decoration.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// Native returns the payload as the corresponding Go type (string, int64,
// float64, or bool). Used when handing properties to store drivers.
func (v Value) Native() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

// MarshalJSON encodes the value as a bare JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON decodes a bare JSON scalar, classifying numbers as ints
// when they have no fractional part.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	got, err := ValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = got
	return nil
}

// ValueFromAny converts a decoded JSON scalar (or a native Go scalar) into
// a Value. Non-scalar inputs are an error: property bags are flat.
func ValueFromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("property value %q is not a valid number", t.String())
		}
		return FloatValue(f), nil
	case int:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case float64:
		// JSON decoded without UseNumber; keep whole floats as ints so that
		// round-tripping through the wire is stable.
		if t == float64(int64(t)) {
			return IntValue(int64(t)), nil
		}
		return FloatValue(t), nil
	default:
		return Value{}, fmt.Errorf("property value of type %T is not a scalar", raw)
	}
}

// PropertiesFromAny converts a decoded JSON object into a property bag.
func PropertiesFromAny(raw map[string]any) (map[string]Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]Value, len(raw))
	for k, rv := range raw {
		v, err := ValueFromAny(rv)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
