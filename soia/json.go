package soia

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/soiago/soia/internal/wire"
)

// JSONFlavor selects between the dense (array/number-indexed, rename-safe)
// and readable (object/name-indexed, human-friendly) encodings spec §1
// requires every record codec to support.
type JSONFlavor int

const (
	Dense JSONFlavor = iota
	Readable
)

// JSONValue is an arbitrary JSON tree: nil, bool, json.Number, string,
// []JSONValue or map[string]JSONValue. The engine assembles these trees
// itself (the dense/readable shape rules are this package's logic); only
// the final text (de)serialization is delegated to the standard library's
// encoding/json, the same way every example repo that passes around
// loosely-typed JSON (moby's API types, jsonpb's use of json.RawMessage)
// leans on it rather than a bespoke writer for that last step.
type JSONValue = any

// MarshalJSONValue renders a JSONValue tree to text, exported for callers
// outside this package (soiarpc's wire framing) that need to stringify a
// Serializer.ToJSON result directly instead of through ToJSONCode.
func MarshalJSONValue(v JSONValue, flavor JSONFlavor) []byte { return marshalIndent(v, flavor) }

// marshalIndent renders v using two-space indent for Readable, none for
// Dense, matching the stringified-code entry points in the public API
// (to_json_code/from_json_code).
func marshalIndent(v JSONValue, flavor JSONFlavor) []byte {
	var out []byte
	if flavor == Readable {
		out, _ = json.MarshalIndent(v, "", "  ")
	} else {
		out, _ = json.Marshal(v)
	}
	return out
}

// ParseJSON parses raw JSON text into a JSONValue tree, preserving large
// integers as json.Number instead of collapsing them into float64.
func ParseJSON(raw []byte) (JSONValue, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v JSONValue
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("soia: invalid JSON: %w", err)
	}
	return v, nil
}

// int64JSON renders an int64 as a JSON number when representable within
// +/-2^53-1, else as a decimal string (spec §4.3).
func int64JSON(v int64) JSONValue {
	const limit = 1<<53 - 1
	if v >= -limit && v <= limit {
		return json.Number(strconv.FormatInt(v, 10))
	}
	return strconv.FormatInt(v, 10)
}

// uint64JSON mirrors int64JSON for the unsigned range.
func uint64JSON(v uint64) JSONValue {
	const limit = 1<<53 - 1
	if v <= limit {
		return json.Number(strconv.FormatUint(v, 10))
	}
	return strconv.FormatUint(v, 10)
}

// floatJSON renders a float as a JSON number when finite, else as one of
// the three documented literal strings (spec §4.3).
func floatJSON(v float64) JSONValue {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	default:
		return json.Number(strconv.FormatFloat(v, 'g', -1, 64))
	}
}

// bytesDenseJSON renders bytes as base64.
func bytesDenseJSON(b []byte) JSONValue {
	if len(b) == 0 {
		return json.Number("0")
	}
	return base64.StdEncoding.EncodeToString(b)
}

// bytesReadableJSON renders bytes as a "hex:"-prefixed base16 string.
func bytesReadableJSON(b []byte) JSONValue {
	return "hex:" + hex.EncodeToString(b)
}

// decodeBytesJSON parses either form back into raw bytes.
func decodeBytesJSON(v JSONValue) ([]byte, error) {
	switch t := v.(type) {
	case json.Number:
		if t.String() == "0" {
			return nil, nil
		}
		return nil, fmt.Errorf("soia: invalid bytes literal %v", t)
	case float64:
		if t == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("soia: invalid bytes literal %v", t)
	case string:
		if strings.HasPrefix(t, "hex:") {
			b, err := hex.DecodeString(strings.TrimPrefix(t, "hex:"))
			if err != nil {
				return nil, fmt.Errorf("soia: invalid hex bytes: %w", err)
			}
			return b, nil
		}
		b, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil, fmt.Errorf("soia: invalid base64 bytes: %w", err)
		}
		return b, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("soia: invalid bytes literal %v", v)
	}
}

// jsonAsFloat64 widens any accepted numeric JSON representation to
// float64, used by numeric FromJSON paths.
func jsonAsFloat64(v JSONValue) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func jsonAsInt64(v JSONValue) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return wire.ClampInt64FromFloat(f), true
		}
	case float64:
		return wire.ClampInt64FromFloat(t), true
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return wire.ClampInt64FromFloat(f), true
		}
	}
	return 0, false
}

func jsonAsUint64(v JSONValue) (uint64, bool) {
	clamp := func(f float64) uint64 {
		switch {
		case !(f > 0):
			return 0
		case f >= math.MaxUint64:
			return math.MaxUint64
		default:
			return uint64(f)
		}
	}
	switch t := v.(type) {
	case json.Number:
		if n, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return clamp(f), true
		}
	case float64:
		return clamp(t), true
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return clamp(f), true
		}
	}
	return 0, false
}

func jsonAsString(v JSONValue) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func jsonAsBool(v JSONValue) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func jsonIsNull(v JSONValue) bool { return v == nil }

// jsonIsZeroDense reports whether v is the dense-zero sentinel (the JSON
// number 0), used by string/bytes/array FromJSON to detect the "0 decodes
// to the shared empty value" dense shorthand.
func jsonIsZeroDense(v JSONValue) bool {
	switch t := v.(type) {
	case json.Number:
		return t.String() == "0"
	case float64:
		return t == 0
	}
	return false
}
