package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
)

type JSONKind uint8

const (
	JSONNull JSONKind = iota
	JSONBool
	JSONNumber
	JSONString
	JSONArray
	JSONObject
)

func (k JSONKind) String() string {
	switch k {
	case JSONNull:
		return "null"
	case JSONBool:
		return "bool"
	case JSONNumber:
		return "number"
	case JSONString:
		return "string"
	case JSONArray:
		return "array"
	case JSONObject:
		return "object"
	}
	return "unknown"
}

// JSONValue is a parsed JSON document. Only the field matching Kind is set.
type JSONValue struct {
	Kind   JSONKind
	Bool   bool
	Number json.Number
	String string
	Array  []JSONValue
	Object map[string]JSONValue
}

// ParseJSONValue parses exactly one JSON document from data.
func ParseJSONValue(data []byte) (JSONValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return JSONValue{}, fmt.Errorf("%w: %v", ErrUnparsableBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return JSONValue{}, fmt.Errorf("%w: trailing data after JSON value", ErrUnparsableBody)
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (JSONValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return JSONValue{}, err
	}

	switch t := tok.(type) {
	case nil:
		return JSONValue{Kind: JSONNull}, nil
	case bool:
		return JSONValue{Kind: JSONBool, Bool: t}, nil
	case json.Number:
		return JSONValue{Kind: JSONNumber, Number: t}, nil
	case string:
		return JSONValue{Kind: JSONString, String: t}, nil
	case json.Delim:
		switch t {
		case '[':
			arr := make([]JSONValue, 0)
			for dec.More() {
				elem, err := decodeJSONValue(dec)
				if err != nil {
					return JSONValue{}, err
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil { // ]
				return JSONValue{}, err
			}
			return JSONValue{Kind: JSONArray, Array: arr}, nil
		case '{':
			obj := make(map[string]JSONValue)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return JSONValue{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return JSONValue{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				elem, err := decodeJSONValue(dec)
				if err != nil {
					return JSONValue{}, err
				}
				obj[key] = elem
			}
			if _, err := dec.Token(); err != nil { // }
				return JSONValue{}, err
			}
			return JSONValue{Kind: JSONObject, Object: obj}, nil
		}
	}
	return JSONValue{}, fmt.Errorf("unexpected token %v", tok)
}

// Contains reports whether actual satisfies v used as a subset template:
// objects need every template key, arrays need every template index (actual may
// be longer), scalars must be equal and of the same kind.
func (v JSONValue) Contains(actual JSONValue) bool {
	if v.Kind != actual.Kind {
		return false
	}

	switch v.Kind {
	case JSONNull:
		return true
	case JSONBool:
		return v.Bool == actual.Bool
	case JSONString:
		return v.String == actual.String
	case JSONNumber:
		return numbersEqual(v.Number, actual.Number)
	case JSONArray:
		if len(actual.Array) < len(v.Array) {
			return false
		}
		for i, elem := range v.Array {
			if !elem.Contains(actual.Array[i]) {
				return false
			}
		}
		return true
	case JSONObject:
		for key, elem := range v.Object {
			got, ok := actual.Object[key]
			if !ok || !elem.Contains(got) {
				return false
			}
		}
		return true
	}
	return false
}

// numbersEqual compares decimal literals exactly, so 1, 1.0 and 1e0 are equal.
func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	ra, ok := new(big.Rat).SetString(a.String())
	if !ok {
		return false
	}
	rb, ok := new(big.Rat).SetString(b.String())
	if !ok {
		return false
	}
	return ra.Cmp(rb) == 0
}

func (v JSONValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case JSONNull:
		return []byte("null"), nil
	case JSONBool:
		return json.Marshal(v.Bool)
	case JSONNumber:
		return []byte(v.Number.String()), nil
	case JSONString:
		return json.Marshal(v.String)
	case JSONArray:
		if v.Array == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Array)
	case JSONObject:
		if v.Object == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Object)
	}
	return nil, fmt.Errorf("unknown JSON kind %d", v.Kind)
}

func (v *JSONValue) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSONValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Clone returns a deep copy.
func (v JSONValue) Clone() JSONValue {
	out := v
	if v.Array != nil {
		out.Array = make([]JSONValue, len(v.Array))
		for i, elem := range v.Array {
			out.Array[i] = elem.Clone()
		}
	}
	if v.Object != nil {
		out.Object = make(map[string]JSONValue, len(v.Object))
		for k, elem := range v.Object {
			out.Object[k] = elem.Clone()
		}
	}
	return out
}
