// Package canon produces canonical JSON for content-addressed hashing:
// object keys sorted by Unicode code point, no HTML escaping,
// NFC-normalized strings. Marshal accepts nil and float64 — event
// payloads are free-form JSON and both appear routinely (previous_hash
// is nullable, numeric fields round-trip as floats).
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Marshal serializes v to canonical JSON. Supported value kinds: nil,
// bool, string, int, int64, float64, []any, map[string]any, and any
// combination thereof from a json.Unmarshal round-trip.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshal(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return marshalString(buf, val)
	case int:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case int64:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case float64:
		return marshalNumber(buf, val)
	case []any:
		return marshalArray(buf, val)
	case map[string]any:
		return marshalObject(buf, val)
	default:
		return fmt.Errorf("canon: unsupported type %T", v)
	}
}

// marshalNumber encodes a float64 the way encoding/json does for
// float64 values: the shortest round-tripping decimal representation,
// integral values without a trailing ".0".
func marshalNumber(buf *bytes.Buffer, f float64) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("canon: number: %w", err)
	}
	buf.Write(b)
	return nil
}

// marshalString writes s NFC-normalized, with HTML characters left
// unescaped and U+2028/U+2029 left as literal characters, per RFC 8785.
func marshalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var enc bytes.Buffer
	e := json.NewEncoder(&enc)
	e.SetEscapeHTML(false)
	if err := e.Encode(normalized); err != nil {
		return fmt.Errorf("canon: string: %w", err)
	}

	result := enc.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	buf.Write(unescapeLineSeparators(result))
	return nil
}

// unescapeLineSeparators reverts Go's \u2028/\u2029 escaping, which
// json.Encoder applies for JavaScript-embedding safety but RFC 8785
// does not require, without disturbing a literal `\\u2028` (an escaped
// backslash followed by the text "u2028").
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	var out []byte
	i := 0
	for i < len(data) {
		if i+6 <= len(data) && data[i] == '\\' && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {

			backslashes := 0
			for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if out == nil {
					out = make([]byte, 0, len(data))
					out = append(out, data[:i]...)
				}
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 6
				continue
			}
		}
		if out != nil {
			out = append(out, data[i])
		}
		i++
	}
	if out == nil {
		return data
	}
	return out
}

func marshalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshal(buf, elem); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := sortedKeys(obj)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := marshal(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// sortedKeys orders object keys by Unicode code point. Go's native
// string comparison already does this: byte-wise comparison of valid
// UTF-8 agrees with code-point order by construction, so sort.Strings
// needs no rune decoding. Note this is plain code-point order, not
// RFC 8785's UTF-16-code-unit order; the two disagree for
// supplementary-plane characters.
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
