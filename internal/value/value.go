// Package value defines the tagged variant used to carry a decoded record
// field without widening Go's type system to match JSON's.
package value

import "encoding/json"

// Kind tags which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindStr
	KindInt
	KindFloat
	KindBool
	KindJSON // serialized form of an array or nested structure
)

// Value is a single decoded record field. Exactly one of the Str/Int/Float/Bool
// fields is meaningful, selected by Kind; KindJSON stores its serialized form
// in Str so object- and array-valued fields never widen the type.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// Null is the canonical null value.
var Null = Value{Kind: KindNull}

func Str(s string) Value   { return Value{Kind: KindStr, Str: s} }
func Int(i int64) Value    { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Bool(b bool) Value    { return Value{Kind: KindBool, Bool: b} }

// JSON wraps an already-serialized JSON fragment (used for array-valued fields).
func JSON(raw string) Value { return Value{Kind: KindJSON, Str: raw} }

// FromAny converts a decoded JSON value (as produced by encoding/json into an
// interface{}) into a Value. Objects are not representable and the caller
// should drop them before calling FromAny.
func FromAny(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case string:
		return Str(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case bool:
		return Bool(t)
	case []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return Str("")
		}
		return JSON(string(b))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Str("")
		}
		return JSON(string(b))
	}
}

// MarshalJSON emits the value the way its native JSON type would serialize,
// so a decoded record round-trips cleanly when handed back to the shell.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindStr:
		return json.Marshal(v.Str)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindJSON:
		return []byte(v.Str), nil
	default:
		return []byte("null"), nil
	}
}

// String renders a plain string form (case preserved), used by the
// streaming parsers to fill Emission values; lowercasing for the searchable
// column projections happens later, in streamparse.Project.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindStr:
		return v.Str
	case KindInt:
		return json.Number(intToString(v.Int)).String()
	case KindFloat:
		return json.Number(floatToString(v.Float)).String()
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindJSON:
		return v.Str
	default:
		return ""
	}
}

func intToString(i int64) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func floatToString(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
