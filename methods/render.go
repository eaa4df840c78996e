/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nqd/flat"
)

const (
	FormatJSON = "json"
	FormatFlat = "flat"
)

var ErrInvalidMessage = errors.New("message body is not valid JSON")

// FormatMessage renders a message body as text. The json format prints the
// parsed body indented by two spaces, the way a browser stringifies it: a
// repeated key keeps its first position and its last value, integer keys come
// first in ascending order, numbers use their shortest spelling and strings
// are escaped only where JSON requires it. The flat format prints one sorted
// "key: value" line per leaf of an object.
func FormatMessage(body []byte, format string) (string, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return "", ErrInvalidMessage
	}

	if format == FormatFlat {
		if text, ok := formatFlat(body); ok {
			return text, nil
		}
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	value, err := decodeOrdered(decoder)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	var out strings.Builder
	writeIndented(&out, value, "")
	return out.String(), nil
}

// orderedObject is a JSON object that remembers where each key first appeared
type orderedObject struct {
	keys   []string
	values map[string]interface{}
}

func (o *orderedObject) set(key string, value interface{}) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// propertyOrder lists array index keys ascending, then the others in
// insertion order
func (o *orderedObject) propertyOrder() []string {
	indexes := make([]string, 0, len(o.keys))
	names := make([]string, 0, len(o.keys))
	for _, key := range o.keys {
		if _, ok := arrayIndex(key); ok {
			indexes = append(indexes, key)
		} else {
			names = append(names, key)
		}
	}

	sort.Slice(indexes, func(i, j int) bool {
		a, _ := arrayIndex(indexes[i])
		b, _ := arrayIndex(indexes[j])
		return a < b
	})
	return append(indexes, names...)
}

// arrayIndex reports whether key is the canonical spelling of an integer
// in [0, 2^32-2]
func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

func decodeOrdered(decoder *json.Decoder) (interface{}, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := token.(json.Delim)
	if !ok {
		return token, nil
	}

	switch delim {
	case '{':
		object := &orderedObject{values: make(map[string]interface{})}
		for decoder.More() {
			keyToken, err := decoder.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyToken.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyToken)
			}
			value, err := decodeOrdered(decoder)
			if err != nil {
				return nil, err
			}
			object.set(key, value)
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
		return object, nil
	case '[':
		array := []interface{}{}
		for decoder.More() {
			value, err := decodeOrdered(decoder)
			if err != nil {
				return nil, err
			}
			array = append(array, value)
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
		return array, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

func writeIndented(out *strings.Builder, value interface{}, indent string) {
	inner := indent + "  "

	switch v := value.(type) {
	case *orderedObject:
		keys := v.propertyOrder()
		if len(keys) == 0 {
			out.WriteString("{}")
			return
		}
		out.WriteString("{\n")
		for i, key := range keys {
			out.WriteString(inner)
			out.WriteString(quoteString(key))
			out.WriteString(": ")
			writeIndented(out, v.values[key], inner)
			if i < len(keys)-1 {
				out.WriteByte(',')
			}
			out.WriteByte('\n')
		}
		out.WriteString(indent + "}")
	case []interface{}:
		if len(v) == 0 {
			out.WriteString("[]")
			return
		}
		out.WriteString("[\n")
		for i, item := range v {
			out.WriteString(inner)
			writeIndented(out, item, inner)
			if i < len(v)-1 {
				out.WriteByte(',')
			}
			out.WriteByte('\n')
		}
		out.WriteString(indent + "]")
	case string:
		out.WriteString(quoteString(v))
	case json.Number:
		f := numberValue(v)
		if math.IsInf(f, 0) {
			// out of range numbers have no JSON spelling
			out.WriteString("null")
			return
		}
		out.WriteString(numberToString(f))
	case bool:
		out.WriteString(strconv.FormatBool(v))
	default:
		out.WriteString("null")
	}
}

// quoteString escapes quote, backslash and control characters and nothing
// else, so "/", "<" and non ASCII text stay as they are
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// numberValue parses a JSON number as a double, overflowing to infinity
func numberValue(n json.Number) float64 {
	f, _ := strconv.ParseFloat(n.String(), 64)
	return f
}

// numberToString spells a double the way JavaScript does: plain decimals
// between 1e-7 and 1e21, exponent notation outside
func numberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	// shortest round trip digits as d.ddde±x
	mantissa, exponent, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	e, _ := strconv.Atoi(exponent)
	k, n := len(digits), e+1

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}

	expSign := "+"
	if n-1 < 0 {
		expSign = "-"
	}
	exp := strconv.Itoa(int(math.Abs(float64(n - 1))))
	if k == 1 {
		return sign + digits + "e" + expSign + exp
	}
	return sign + digits[:1] + "." + digits[1:] + "e" + expSign + exp
}

func formatFlat(body []byte) (string, bool) {
	var nested map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&nested); err != nil || len(nested) == 0 {
		return "", false
	}

	flattened, err := flat.Flatten(nested, &flat.Options{Delimiter: ".", Safe: false})
	if err != nil || len(flattened) == 0 {
		return "", false
	}

	keys := make([]string, 0, len(flattened))
	for key := range flattened {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+": "+flatValue(flattened[key]))
	}
	return strings.Join(lines, "\n"), true
}

func flatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return numberToString(numberValue(v))
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}
