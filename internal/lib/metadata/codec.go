package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// timeTag marks an encoded temporal value: {"$time":"2024-05-01T10:00:00Z"}.
// User keys beginning with '$' are escaped with one more '$' so they can
// never be mistaken for the tag.
const timeTag = "$time"

var (
	ErrNotObject   = errors.New("metadata: scalar does not hold an object")
	ErrUnsupported = errors.New("metadata: unsupported value")
)

// Encode turns m into its canonical text scalar. Absent or empty metadata
// encodes to "".
func Encode(m Map) (string, error) {
	const op = "metadata.Encode"

	if len(m) == 0 {
		return "", nil
	}

	if err := Object(m).check(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	b, err := json.Marshal(Object(m))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Decode is the inverse of Encode: Decode(Encode(m)) is structurally equal
// to m. An empty scalar decodes to a nil Map.
func Decode(scalar string) (Map, error) {
	const op = "metadata.Decode"

	if strings.TrimSpace(scalar) == "" {
		return nil, nil
	}

	var v Value
	if err := json.Unmarshal([]byte(scalar), &v); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotObject)
	}

	return m, nil
}

// check rejects values whose text form would not decode back to themselves:
// times outside years 0000-9999 and strings that are not valid UTF-8.
func (v Value) check() error {
	switch v.kind {
	case KindText:
		if !utf8.ValidString(v.s) {
			return fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupported)
		}
	case KindTime:
		if y := v.t.Year(); y < 0 || y > 9999 {
			return fmt.Errorf("%w: year %d outside [0,9999]", ErrUnsupported, y)
		}
	case KindList:
		for _, item := range v.list {
			if err := item.check(); err != nil {
				return err
			}
		}
	case KindMap:
		for k, item := range v.m {
			if !utf8.ValidString(k) {
				return fmt.Errorf("%w: key %q is not valid UTF-8", ErrUnsupported, k)
			}
			if err := item.check(); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
	}

	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toJSON())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := fromJSON(raw)
	if err != nil {
		return err
	}

	*v = parsed
	return nil
}

func (v Value) toJSON() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindText:
		return v.s
	case KindTime:
		return map[string]any{timeTag: v.t.Format(time.RFC3339Nano)}
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.toJSON()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[escapeKey(k)] = item.toJSON()
		}
		return out
	}
	return nil
}

func fromJSON(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case string:
		return Text(x), nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := fromJSON(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		if s, ok := x[timeTag].(string); ok && len(x) == 1 {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return Value{}, fmt.Errorf("metadata: bad %s value %q: %w", timeTag, s, err)
			}
			return Time(t), nil
		}
		m := make(Map, len(x))
		for k, item := range x {
			v, err := fromJSON(item)
			if err != nil {
				return Value{}, err
			}
			m[unescapeKey(k)] = v
		}
		return Object(m), nil
	}

	return Value{}, fmt.Errorf("%w: %T", ErrUnsupported, raw)
}

func escapeKey(k string) string {
	if strings.HasPrefix(k, "$") {
		return "$" + k
	}
	return k
}

func unescapeKey(k string) string {
	if strings.HasPrefix(k, "$$") {
		return k[1:]
	}
	return k
}

// FromAny builds a Value from decoded JSON or plain Go values. time.Time
// and a lone {"$time": "<RFC 3339>"} object become temporal values;
// integers and floats become numbers.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case Map:
		return Object(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case time.Time:
		return Time(t), nil
	case *time.Time:
		if t == nil {
			return Null(), nil
		}
		return Time(*t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %q", ErrUnsupported, t.String())
		}
		return finite(f)
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = Text(s)
		}
		return List(items...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]string:
		m := make(Map, len(t))
		for k, s := range t {
			m[k] = Text(s)
		}
		return Object(m), nil
	case map[string]any:
		if s, ok := t[timeTag].(string); ok && len(t) == 1 {
			if at, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return Time(at), nil
			}
		}
		m, err := MapFromAny(t)
		if err != nil {
			return Value{}, err
		}
		return Object(m), nil
	}

	return Value{}, fmt.Errorf("%w: %T", ErrUnsupported, x)
}

// MapFromAny converts a request-shaped map. A nil map stays nil.
func MapFromAny(in map[string]any) (Map, error) {
	if in == nil {
		return nil, nil
	}

	m := make(Map, len(in))
	for k, item := range in {
		v, err := FromAny(item)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		m[k] = v
	}

	return m, nil
}

func finite(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite number", ErrUnsupported)
	}
	return Number(f), nil
}
